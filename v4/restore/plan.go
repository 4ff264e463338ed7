// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package restore

import (
	"fmt"
	"strings"

	"github.com/mysqlbackup4go/backup4go/v4/export"
)

const (
	disableForeignKeyChecks = "SET FOREIGN_KEY_CHECKS = 0"
	enableForeignKeyChecks  = "SET FOREIGN_KEY_CHECKS = 1"
)

// Statement is one entry of an import batch.
type Statement struct {
	// Label names where the statement comes from, a chunk label or "pre-clear".
	Label string
	SQL   string
}

// Options controls what happens to existing objects before replay.
type Options struct {
	// DeleteExisting empties every existing table of the target database.
	DeleteExisting bool
	// DropExisting drops every existing table and view of the target
	// database. It takes precedence over DeleteExisting.
	DropExisting bool
	// Database is the target database. Empty means the connection default.
	Database string
}

func (o Options) clearsExisting() bool {
	return o.DeleteExisting || o.DropExisting
}

// BuildPlan returns the ordered batch that replays chunks on a database
// whose current objects are existing. The batch always starts by disabling
// foreign key checks and ends by enabling them again.
func BuildPlan(chunks []Chunk, existing *export.Catalog, opts Options) []Statement {
	plan := []Statement{{Label: "setup", SQL: disableForeignKeyChecks}}
	if existing != nil && opts.clearsExisting() {
		plan = append(plan, preClear(existing, opts)...)
	}
	for _, chunk := range chunks {
		if chunk.Body == "" {
			continue
		}
		plan = append(plan, Statement{Label: chunk.Label, SQL: chunk.Body})
	}
	return append(plan, Statement{Label: "teardown", SQL: enableForeignKeyChecks})
}

func preClear(existing *export.Catalog, opts Options) []Statement {
	var stmts []Statement
	for _, table := range existing.Tables {
		name := quoteIdentifier(table)
		if opts.DropExisting {
			stmts = append(stmts, Statement{Label: "pre-clear", SQL: fmt.Sprintf("DROP TABLE IF EXISTS %s", name)})
		} else {
			stmts = append(stmts, Statement{Label: "pre-clear", SQL: fmt.Sprintf("DELETE FROM %s", name)})
		}
	}
	if opts.DropExisting {
		for _, view := range existing.Views {
			stmts = append(stmts, Statement{Label: "pre-clear", SQL: fmt.Sprintf("DROP VIEW IF EXISTS %s", quoteIdentifier(view))})
		}
	}
	return stmts
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
