// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"context"
	"strings"
)

// ObjectScript is the generated script of one table or view. DDL and Data
// are already wrapped in chunk markers. Data is empty for views and for
// tables without rows.
type ObjectScript struct {
	Name string
	Type TableType
	DDL  string
	Data string
	Rows uint64
}

// String returns the DDL chunk followed by the data chunks.
func (o *ObjectScript) String() string {
	var b strings.Builder
	b.WriteString(o.DDL)
	b.WriteString(o.Data)
	return b.String()
}

// SkippedObject records an object whose script could not be generated.
type SkippedObject struct {
	Name string
	Type TableType
	Err  error
}

// NewTableScript extracts the DDL and data of table.
func NewTableScript(ctx context.Context, db Querier, database, table string, opts ScriptOptions) (*ObjectScript, error) {
	ddl, err := GetTableDDL(ctx, db, database, table, opts)
	if err != nil {
		return nil, NewError(ErrObjectExtraction, table, err)
	}
	data, rows, err := GetTableData(ctx, db, database, table, opts)
	if err != nil {
		return nil, NewError(ErrObjectExtraction, table, err)
	}
	return &ObjectScript{
		Name: table,
		Type: TableTypeBase,
		DDL:  ddl,
		Data: data,
		Rows: rows,
	}, nil
}

// NewViewScript extracts the DDL of view.
func NewViewScript(ctx context.Context, db Querier, database, view string) (*ObjectScript, error) {
	ddl, err := GetViewDDL(ctx, db, database, view)
	if err != nil {
		return nil, NewError(ErrObjectExtraction, view, err)
	}
	return &ObjectScript{
		Name: view,
		Type: TableTypeView,
		DDL:  ddl,
	}, nil
}
