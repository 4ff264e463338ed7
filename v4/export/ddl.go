// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Chunk markers. A marker is only recognised at the start of a line.
const (
	StartMarker = "-- start"
	EndMarker   = "-- end"
)

// Chunk labels written after the markers.
const (
	ChunkTableDump   = "table dump"
	ChunkTableDelete = "table delete"
	ChunkTableInsert = "table insert"
	ChunkViewDump    = "view dump"
)

// ScriptOptions controls how object scripts are rewritten for replay.
type ScriptOptions struct {
	AddIfNotExists     bool
	DropTables         bool
	DeleteExistingData bool
	EscapeBackslash    bool
}

// ChunkLabel returns the text following a marker for the chunk of name.
func ChunkLabel(kind, name string) string {
	return fmt.Sprintf("%s : %s", kind, name)
}

// WrapChunk bounds body with a start and an end marker line.
func WrapChunk(kind, name, body string) (string, error) {
	if !isPrintableLabel(name) {
		return "", errors.Errorf("object name %q cannot be used in a chunk marker", name)
	}
	label := ChunkLabel(kind, name)
	var b strings.Builder
	b.Grow(len(body) + 2*len(label) + 32)
	b.WriteString(StartMarker)
	b.WriteByte(' ')
	b.WriteString(label)
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(body))
	b.WriteByte('\n')
	b.WriteString(EndMarker)
	b.WriteByte(' ')
	b.WriteString(label)
	b.WriteByte('\n')
	return b.String(), nil
}

// GetTableDDL returns the marker wrapped creation script of table.
func GetTableDDL(ctx context.Context, db Querier, database, table string, opts ScriptOptions) (string, error) {
	createSQL, err := ShowCreateTable(ctx, db, database, table)
	if err != nil {
		return "", err
	}
	return WrapChunk(ChunkTableDump, table, rewriteTableDDL(createSQL, table, opts))
}

// GetViewDDL returns the marker wrapped CREATE OR REPLACE script of view.
func GetViewDDL(ctx context.Context, db Querier, database, view string) (string, error) {
	createSQL, err := ShowCreateView(ctx, db, database, view)
	if err != nil {
		return "", err
	}
	rewritten, err := rewriteViewDDL(createSQL, view)
	if err != nil {
		return "", err
	}
	return WrapChunk(ChunkViewDump, view, rewritten)
}

func rewriteTableDDL(createSQL, table string, opts ScriptOptions) string {
	createSQL = strings.TrimRight(strings.TrimSpace(createSQL), ";")
	if opts.AddIfNotExists {
		createSQL = addIfNotExists(createSQL)
	}
	var b strings.Builder
	if opts.DropTables {
		b.WriteString("DROP TABLE IF EXISTS ")
		b.WriteString(wrapBackTicks(table))
		b.WriteString(";\n")
	}
	b.WriteString(createSQL)
	b.WriteString(";")
	return b.String()
}

const (
	createTablePrefix = "CREATE TABLE "
	ifNotExistsGuard  = "IF NOT EXISTS "
)

func addIfNotExists(createSQL string) string {
	if !hasPrefixFold(createSQL, createTablePrefix) {
		return createSQL
	}
	rest := createSQL[len(createTablePrefix):]
	if hasPrefixFold(rest, ifNotExistsGuard) {
		return createSQL
	}
	return createTablePrefix + ifNotExistsGuard + rest
}

// rewriteViewDDL keeps the body following AS and rebuilds the head as
// CREATE OR REPLACE VIEW, dropping algorithm, definer and security clauses.
func rewriteViewDDL(createSQL, view string) (string, error) {
	createSQL = strings.TrimRight(strings.TrimSpace(createSQL), ";")
	upper := strings.ToUpper(createSQL)
	idx := strings.Index(upper, " VIEW ")
	if idx < 0 {
		return "", errors.Errorf("VIEW keyword not found in %q", createSQL)
	}
	rest := strings.TrimLeft(createSQL[idx+len(" VIEW "):], " ")
	for {
		n, err := identifierLength(rest)
		if err != nil {
			return "", errors.WithMessagef(err, "parse view name in %q", createSQL)
		}
		rest = rest[n:]
		if !strings.HasPrefix(rest, ".") {
			break
		}
		rest = rest[1:]
	}
	rest = strings.TrimLeft(rest, " ")
	// a column list may follow the view name and names the view's columns
	var columns string
	if strings.HasPrefix(rest, "(") {
		end := columnListLength(rest)
		if end < 0 {
			return "", errors.Errorf("unterminated column list in %q", createSQL)
		}
		columns = rest[:end] + " "
		rest = strings.TrimLeft(rest[end:], " ")
	}
	if !hasPrefixFold(rest, "AS ") && !hasPrefixFold(rest, "AS\n") {
		return "", errors.Errorf("AS keyword not found in %q", createSQL)
	}
	body := strings.TrimSpace(rest[len("AS "):])
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s %sAS %s;", wrapBackTicks(view), columns, body), nil
}

// columnListLength returns the byte length of the parenthesized list that
// starts s, or -1 if it is not closed. Parentheses inside backtick quoted
// names do not count.
func columnListLength(s string) int {
	quoted := false
	for i := 1; i < len(s); i++ {
		switch {
		case s[i] == '`':
			quoted = !quoted
		case s[i] == ')' && !quoted:
			return i + 1
		}
	}
	return -1
}

// identifierLength returns the byte length of the leading identifier of s.
func identifierLength(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty identifier")
	}
	if s[0] != '`' {
		n := strings.IndexAny(s, " .(\n")
		if n < 0 {
			return 0, errors.New("identifier is not followed by AS")
		}
		if n == 0 {
			return 0, errors.New("empty identifier")
		}
		return n, nil
	}
	for i := 1; i < len(s); i++ {
		if s[i] != '`' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '`' {
			i++
			continue
		}
		return i + 1, nil
	}
	return 0, errors.New("unterminated quoted identifier")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
