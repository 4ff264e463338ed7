// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"bytes"
	"database/sql"
	"encoding/hex"
	"math/big"
	"strings"
)

var colTypeRowReceiverMap = map[string]func() RowReceiverStringer{}

var (
	nullValue     = "NULL"
	quotationMark = []byte{'\''}
	emptyLiteral  = "''"
	hexPrefix     = "0x"
)

func init() {
	for _, s := range dataTypeInt {
		colTypeRowReceiverMap[s] = SQLTypeNumberMaker
	}
	for _, s := range dataTypeBin {
		colTypeRowReceiverMap[s] = SQLTypeBytesMaker
	}
	colTypeRowReceiverMap["BIT"] = SQLTypeBitMaker
}

var dataTypeInt = []string{
	"INTEGER", "BIGINT", "TINYINT", "SMALLINT", "MEDIUMINT",
	"INT", "INT1", "INT2", "INT3", "INT4", "INT8",
	"BOOL", "BOOLEAN",
}

var dataTypeBin = []string{
	"BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "LONG VARBINARY",
	"BINARY", "VARBINARY", "GEOMETRY",
}

// normalizeColumnType maps a driver type name onto the receiver table key.
func normalizeColumnType(colType string) string {
	colType = strings.ToUpper(strings.TrimSpace(colType))
	return strings.TrimPrefix(colType, "UNSIGNED ")
}

func escapeBackslashFn(s []byte, bf *bytes.Buffer) {
	var (
		escape byte
		last   = 0
	)
	// reference: https://gist.github.com/siddontang/8875771
	for i := 0; i < len(s); i++ {
		escape = 0

		switch s[i] {
		case 0: /* Must be escaped for 'mysql' */
			escape = '0'
		case '\n': /* Must be escaped for logs */
			escape = 'n'
		case '\r':
			escape = 'r'
		case '\\':
			escape = '\\'
		case '\'':
			escape = '\''
		case '"': /* Better safe than sorry */
			escape = '"'
		case '\032': /* This gives problems on Win32 */
			escape = 'Z'
		}

		if escape != 0 {
			bf.Write(s[last:i])
			bf.WriteByte('\\')
			bf.WriteByte(escape)
			last = i + 1
		}
	}
	if last == 0 {
		bf.Write(s)
	} else if last < len(s) {
		bf.Write(s[last:])
	}
}

// escapeQuoteFn escapes single quotes with a backslash. Line breaks are
// escaped too so a value can never begin a line of the script. Backslashes
// are kept as is, so a value containing one does not replay unchanged.
func escapeQuoteFn(s []byte, bf *bytes.Buffer) {
	last := 0
	for i := 0; i < len(s); i++ {
		var escape byte
		switch s[i] {
		case '\'':
			escape = '\''
		case '\n':
			escape = 'n'
		case '\r':
			escape = 'r'
		}
		if escape != 0 {
			bf.Write(s[last:i])
			bf.WriteByte('\\')
			bf.WriteByte(escape)
			last = i + 1
		}
	}
	bf.Write(s[last:])
}

func escapeSQL(s []byte, bf *bytes.Buffer, escapeBackslash bool) {
	if escapeBackslash {
		escapeBackslashFn(s, bf)
		return
	}
	escapeQuoteFn(s, bf)
}

// SQLTypeStringMaker returns a SQLTypeString
func SQLTypeStringMaker() RowReceiverStringer {
	return &SQLTypeString{}
}

// SQLTypeBytesMaker returns a SQLTypeBytes
func SQLTypeBytesMaker() RowReceiverStringer {
	return &SQLTypeBytes{}
}

// SQLTypeNumberMaker returns a SQLTypeNumber
func SQLTypeNumberMaker() RowReceiverStringer {
	return &SQLTypeNumber{}
}

// SQLTypeBitMaker returns a SQLTypeBit
func SQLTypeBitMaker() RowReceiverStringer {
	return &SQLTypeBit{}
}

// MakeRowReceiver constructs RowReceiverArr from column types
func MakeRowReceiver(colTypes []string) RowReceiverArr {
	rowReceiverArr := make([]RowReceiverStringer, len(colTypes))
	for i, colTp := range colTypes {
		recMaker, ok := colTypeRowReceiverMap[normalizeColumnType(colTp)]
		if !ok {
			recMaker = SQLTypeStringMaker
		}
		rowReceiverArr[i] = recMaker()
	}
	return RowReceiverArr{
		receivers: rowReceiverArr,
	}
}

// RowReceiverArr is the combined RowReceiver array
type RowReceiverArr struct {
	receivers []RowReceiverStringer
}

// BindAddress implements RowReceiver.BindAddress
func (r RowReceiverArr) BindAddress(args []interface{}) {
	for i := range args {
		r.receivers[i].BindAddress(args[i : i+1])
	}
}

// WriteToBuffer implements Stringer.WriteToBuffer
func (r RowReceiverArr) WriteToBuffer(bf *bytes.Buffer, escapeBackslash bool) {
	bf.WriteByte('(')
	for i, receiver := range r.receivers {
		receiver.WriteToBuffer(bf, escapeBackslash)
		if i != len(r.receivers)-1 {
			bf.WriteString(", ")
		}
	}
	bf.WriteByte(')')
}

// SQLTypeNumber implements RowReceiverStringer which represents integral type columns in database
type SQLTypeNumber struct {
	SQLTypeString
}

// WriteToBuffer implements Stringer.WriteToBuffer
func (s *SQLTypeNumber) WriteToBuffer(bf *bytes.Buffer, _ bool) {
	if s.RawBytes != nil {
		bf.Write(s.RawBytes)
	} else {
		bf.WriteString(nullValue)
	}
}

// SQLTypeString implements RowReceiverStringer which represents string type columns in database
type SQLTypeString struct {
	sql.RawBytes
}

// BindAddress implements RowReceiver.BindAddress
func (s *SQLTypeString) BindAddress(arg []interface{}) {
	arg[0] = &s.RawBytes
}

// WriteToBuffer implements Stringer.WriteToBuffer
func (s *SQLTypeString) WriteToBuffer(bf *bytes.Buffer, escapeBackslash bool) {
	if s.RawBytes != nil {
		bf.Write(quotationMark)
		escapeSQL(s.RawBytes, bf, escapeBackslash)
		bf.Write(quotationMark)
	} else {
		bf.WriteString(nullValue)
	}
}

// SQLTypeBytes implements RowReceiverStringer which represents bytes type columns in database
type SQLTypeBytes struct {
	sql.RawBytes
}

// BindAddress implements RowReceiver.BindAddress
func (s *SQLTypeBytes) BindAddress(arg []interface{}) {
	arg[0] = &s.RawBytes
}

// WriteToBuffer implements Stringer.WriteToBuffer
func (s *SQLTypeBytes) WriteToBuffer(bf *bytes.Buffer, _ bool) {
	switch {
	case s.RawBytes == nil:
		bf.WriteString(nullValue)
	case len(s.RawBytes) == 0:
		// 0x alone is not a valid literal
		bf.WriteString(emptyLiteral)
	default:
		bf.WriteString(hexPrefix)
		bf.WriteString(hex.EncodeToString(s.RawBytes))
	}
}

// SQLTypeBit implements RowReceiverStringer which represents BIT columns. The
// driver hands them over as big-endian bytes.
type SQLTypeBit struct {
	SQLTypeBytes
}

// WriteToBuffer implements Stringer.WriteToBuffer
func (s *SQLTypeBit) WriteToBuffer(bf *bytes.Buffer, _ bool) {
	if s.RawBytes == nil {
		bf.WriteString(nullValue)
		return
	}
	bf.WriteString(new(big.Int).SetBytes(s.RawBytes).String())
}
