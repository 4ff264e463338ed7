// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"bytes"
	"context"
	"database/sql"
)

// Querier is the capability the dump engine needs from a database handle.
// *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// TableType is the engine-reported kind of a schema object.
type TableType int8

const (
	// TableTypeBase is a base table.
	TableTypeBase TableType = iota
	// TableTypeView is a view.
	TableTypeView
)

const (
	// TableTypeBaseStr is the marker label of a base table.
	TableTypeBaseStr = "table"
	// TableTypeViewStr is the marker label of a view.
	TableTypeViewStr = "view"
)

func (t TableType) String() string {
	switch t {
	case TableTypeBase:
		return TableTypeBaseStr
	case TableTypeView:
		return TableTypeViewStr
	default:
		return "unknown"
	}
}

// TableInfo is one catalog entry.
type TableInfo struct {
	Name string
	Type TableType
}

// NewTableInfos builds catalog entries of one kind.
func NewTableInfos(names []string, tp TableType) []*TableInfo {
	infos := make([]*TableInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, &TableInfo{Name: name, Type: tp})
	}
	return infos
}

// Catalog is the set of tables and views of one database, in engine order.
type Catalog struct {
	Tables []string
	Views  []string
}

// Entries returns the tables followed by the views.
func (c *Catalog) Entries() []*TableInfo {
	entries := NewTableInfos(c.Tables, TableTypeBase)
	return append(entries, NewTableInfos(c.Views, TableTypeView)...)
}

// SQLRowIter is the iterator on a collection of sql.Row.
type SQLRowIter interface {
	Decode(RowReceiver) error
	Next()
	Error() error
	HasNext() bool
	Close() error
}

// RowReceiver is a receiver of one scanned row.
type RowReceiver interface {
	BindAddress([]interface{})
}

// RowReceiverStringer is a RowReceiver that can render itself as SQL literals.
type RowReceiverStringer interface {
	RowReceiver
	Stringer
}

// Stringer writes the SQL literal form of a received value.
type Stringer interface {
	WriteToBuffer(bf *bytes.Buffer, escapeBackslash bool)
}

// TableDataIR is table data intermediate representation.
type TableDataIR interface {
	TableName() string
	ColumnTypes() []string
	ColumnNames() []string

	Rows() SQLRowIter
}
