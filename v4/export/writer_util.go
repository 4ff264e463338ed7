// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mysqlbackup4go/backup4go/v4/log"
	"go.uber.org/zap"
)

const lengthLimit = 1048576

var pool = sync.Pool{New: func() interface{} {
	return &bytes.Buffer{}
}}

// WriteInsert writes every row of tblIR as a single INSERT statement with a
// column list. Nothing is written when the table has no rows.
func WriteInsert(tblIR TableDataIR, w io.StringWriter, escapeBackslash bool) (uint64, error) {
	rowIter := tblIR.Rows()
	defer rowIter.Close()
	if !rowIter.HasNext() {
		return 0, rowIter.Error()
	}

	bf := pool.Get().(*bytes.Buffer)
	if bfCap := bf.Cap(); bfCap < lengthLimit {
		bf.Grow(lengthLimit - bfCap)
	}
	defer func() {
		bf.Reset()
		pool.Put(bf)
	}()

	bf.WriteString("INSERT INTO ")
	bf.WriteString(wrapBackTicks(tblIR.TableName()))
	bf.WriteString(" (")
	for i, col := range tblIR.ColumnNames() {
		if i > 0 {
			bf.WriteString(", ")
		}
		bf.WriteString(wrapBackTicks(col))
	}
	bf.WriteString(") VALUES ")

	var (
		row     = MakeRowReceiver(tblIR.ColumnTypes())
		counter uint64
	)
	for rowIter.HasNext() {
		if counter > 0 {
			bf.WriteString(", ")
		}
		if err := rowIter.Decode(row); err != nil {
			log.Zap().Error("scanning from sql.Row failed", zap.String("table", tblIR.TableName()), zap.Error(err))
			return counter, err
		}
		row.WriteToBuffer(bf, escapeBackslash)
		counter++
		rowIter.Next()

		if bf.Len() >= lengthLimit {
			if err := write(w, bf.String()); err != nil {
				return counter, err
			}
			bf.Reset()
		}
	}
	if err := rowIter.Error(); err != nil {
		return counter, err
	}
	bf.WriteString(";")
	log.Zap().Debug("dumping table",
		zap.String("table", tblIR.TableName()),
		zap.Uint64("record counts", counter))
	return counter, write(w, bf.String())
}

// GetTableData returns the marker wrapped data script of table and its row
// count. The script is empty when the table has no rows.
func GetTableData(ctx context.Context, db Querier, database, table string, opts ScriptOptions) (string, uint64, error) {
	tblIR, err := SelectAllFromTable(ctx, db, database, table)
	if err != nil {
		return "", 0, err
	}

	var insert strings.Builder
	rows, err := WriteInsert(tblIR, &insert, opts.EscapeBackslash)
	if err != nil {
		return "", 0, err
	}
	if rows == 0 {
		return "", 0, nil
	}

	var script strings.Builder
	if opts.DeleteExistingData && !opts.DropTables {
		deleteChunk, err := WrapChunk(ChunkTableDelete, table, safeDeleteSQL(table))
		if err != nil {
			return "", 0, err
		}
		script.WriteString(deleteChunk)
	}
	quoted := wrapBackTicks(table)
	body := "/*!40000 ALTER TABLE " + quoted + " DISABLE KEYS */;\n" +
		insert.String() + "\n" +
		"/*!40000 ALTER TABLE " + quoted + " ENABLE KEYS */;"
	insertChunk, err := WrapChunk(ChunkTableInsert, table, body)
	if err != nil {
		return "", 0, err
	}
	script.WriteString(insertChunk)
	return script.String(), rows, nil
}

// safeDeleteSQL clears table only if it exists in the current database at
// replay time and runs a no-op query otherwise.
func safeDeleteSQL(table string) string {
	var b strings.Builder
	b.WriteString("SET @backup4go_delete = IF((SELECT COUNT(*) FROM information_schema.tables ")
	b.WriteString("WHERE table_schema = DATABASE() AND table_name = ")
	b.WriteString(quoteString(table))
	b.WriteString(") > 0, ")
	b.WriteString(quoteString("DELETE FROM " + wrapBackTicks(table)))
	b.WriteString(", 'SELECT 1');\n")
	b.WriteString("PREPARE backup4go_stmt FROM @backup4go_delete;\n")
	b.WriteString("EXECUTE backup4go_stmt;\n")
	b.WriteString("DEALLOCATE PREPARE backup4go_stmt;")
	return b.String()
}

func quoteString(s string) string {
	var bf bytes.Buffer
	bf.Write(quotationMark)
	escapeBackslashFn([]byte(s), &bf)
	bf.Write(quotationMark)
	return bf.String()
}

func write(writer io.StringWriter, str string) error {
	_, err := writer.WriteString(str)
	if err != nil {
		log.Zap().Error("writing failed",
			zap.Int("length", len(str)),
			zap.Error(err))
	}
	return err
}

func buildFileWriter(path string) (io.StringWriter, func() error, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Zap().Error("open file failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, nil, err
	}
	log.Zap().Debug("opened file", zap.String("path", path))
	buf := bufio.NewWriter(file)
	tearDownRoutine := func() error {
		flushErr := buf.Flush()
		err := file.Close()
		if flushErr != nil {
			err = flushErr
		}
		if err != nil {
			log.Zap().Error("close file failed",
				zap.String("path", path),
				zap.Error(err))
		}
		return err
	}
	return buf, tearDownRoutine, nil
}

// InterceptStringWriter is an interceptor of io.StringWriter,
// tracking how many bytes a StringWriter has written.
type InterceptStringWriter struct {
	io.StringWriter
	Written uint64
}

// WriteString implements io.StringWriter.
func (w *InterceptStringWriter) WriteString(str string) (int, error) {
	n, err := w.StringWriter.WriteString(str)
	w.Written += uint64(n)
	return n, err
}
