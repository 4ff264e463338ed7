// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	tableStatusNameField    = "Name"
	tableStatusCommentField = "Comment"
	viewComment             = "VIEW"
)

// ListObjects enumerates the tables and views of database using the table
// status metadata. Rows whose comment is exactly VIEW are views, every other
// row is a table. Any query failure is a catalog error and is not retried.
func ListObjects(ctx context.Context, db Querier, database string) (*Catalog, error) {
	query := fmt.Sprintf("SHOW TABLE STATUS FROM %s", wrapBackTicks(database))
	catalog := &Catalog{}
	var nameIdx, commentIdx = -1, -1
	handleOneRow := func(rows *sql.Rows, row []sql.NullString) error {
		if nameIdx < 0 {
			cols, err := rows.Columns()
			if err != nil {
				return err
			}
			nameIdx, commentIdx = columnIndex(cols, tableStatusNameField), columnIndex(cols, tableStatusCommentField)
			if nameIdx < 0 {
				return errors.Errorf("column %s not found in table status", tableStatusNameField)
			}
		}
		name := row[nameIdx].String
		if commentIdx >= 0 && row[commentIdx].String == viewComment {
			catalog.Views = append(catalog.Views, name)
		} else {
			catalog.Tables = append(catalog.Tables, name)
		}
		return nil
	}
	if err := multiColumnQuery(ctx, db, query, handleOneRow); err != nil {
		return nil, NewError(ErrCatalog, database, errors.WithMessage(err, query))
	}
	return catalog, nil
}

// ShowCreateTable returns the canonical creation statement of a table.
func ShowCreateTable(ctx context.Context, db Querier, database, table string) (string, error) {
	query := fmt.Sprintf("SHOW CREATE TABLE %s.%s", wrapBackTicks(database), wrapBackTicks(table))
	return showCreate(ctx, db, query)
}

// ShowCreateView returns the canonical creation statement of a view.
func ShowCreateView(ctx context.Context, db Querier, database, view string) (string, error) {
	query := fmt.Sprintf("SHOW CREATE VIEW %s.%s", wrapBackTicks(database), wrapBackTicks(view))
	return showCreate(ctx, db, query)
}

func showCreate(ctx context.Context, db Querier, query string) (string, error) {
	var createSQL string
	found := false
	handleOneRow := func(_ *sql.Rows, row []sql.NullString) error {
		if len(row) < 2 {
			return errors.Errorf("unexpected column count %d", len(row))
		}
		createSQL, found = row[1].String, true
		return nil
	}
	if err := multiColumnQuery(ctx, db, query, handleOneRow); err != nil {
		return "", errors.WithMessage(err, query)
	}
	if !found {
		return "", errors.Errorf("%s returned no rows", query)
	}
	return createSQL, nil
}

// SelectVersion returns the server version string.
func SelectVersion(ctx context.Context, db Querier) (string, error) {
	var versionInfo string
	handleOneRow := func(rows *sql.Rows) error {
		return rows.Scan(&versionInfo)
	}
	err := simpleQuery(ctx, db, "SELECT version()", handleOneRow)
	if err != nil {
		return "", errors.WithMessage(err, "SELECT version()")
	}
	return versionInfo, nil
}

// SelectDatabase returns the default database of the session, empty if none
// is selected.
func SelectDatabase(ctx context.Context, db Querier) (string, error) {
	var database sql.NullString
	handleOneRow := func(rows *sql.Rows) error {
		return rows.Scan(&database)
	}
	err := simpleQuery(ctx, db, "SELECT DATABASE()", handleOneRow)
	if err != nil {
		return "", errors.WithMessage(err, "SELECT DATABASE()")
	}
	return database.String, nil
}

// SelectAllFromTable runs a full scan of table. The caller owns the returned rows.
func SelectAllFromTable(ctx context.Context, db Querier, database, table string) (TableDataIR, error) {
	query := buildSelectAllQuery(database, table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, withStack(errors.WithMessage(err, query))
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, withStack(errors.WithMessage(err, query))
	}
	return &tableData{
		table:    table,
		rows:     rows,
		colTypes: colTypes,
	}, nil
}

func buildSelectAllQuery(database, table string) string {
	var query strings.Builder
	query.WriteString("SELECT * FROM ")
	query.WriteString(wrapBackTicks(database))
	query.WriteString(".")
	query.WriteString(wrapBackTicks(table))
	return query.String()
}

func columnIndex(cols []string, name string) int {
	for i, col := range cols {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

func simpleQuery(ctx context.Context, db Querier, query string, handleOneRow func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return withStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := handleOneRow(rows); err != nil {
			return withStack(err)
		}
	}
	return withStack(rows.Err())
}

// multiColumnQuery scans every column of every row as a nullable string.
func multiColumnQuery(ctx context.Context, db Querier, query string, handleOneRow func(*sql.Rows, []sql.NullString) error) error {
	var (
		row  []sql.NullString
		addr []interface{}
	)
	return simpleQuery(ctx, db, query, func(rows *sql.Rows) error {
		if row == nil {
			cols, err := rows.Columns()
			if err != nil {
				return err
			}
			row = make([]sql.NullString, len(cols))
			addr = make([]interface{}, len(cols))
			for i := range row {
				addr[i] = &row[i]
			}
		}
		if err := rows.Scan(addr...); err != nil {
			return err
		}
		return handleOneRow(rows, row)
	})
}
