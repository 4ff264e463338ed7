// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package naughty_strings

import (
	"database/sql"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/pkg/errors"
)

const randomStrings = 200

// strs are values that break naive literal quoting or the chunk markers.
var strs = []string{
	"",
	"'",
	"''",
	"\\",
	"\\'",
	"'; DROP TABLE t; --",
	"O'Brien",
	"line1\nline2",
	"line1\r\nline2",
	"\n-- end table insert : t\n",
	"\n-- start table insert : t\n",
	"-- end table insert : t",
	"\t\b\x00\x1a",
	"%_",
	"NULL",
	"0x00",
	"`backtick`",
	"\"double\"",
	"Ω≈ç√∫˜µ≤≥÷",
	"田中さんにあげて下さい",
	"𝕋𝕙𝕖 𝕢𝕦𝕚𝕔𝕜",
	"👾 🙇 💁 🙅 🙆 🙋 🙎 🙍",
	"‪‪test‪",
	"<script>alert(123)</script>",
}

// NaughtyStringTestRunner stores strings that are hard to escape and checks
// that they survive an export and import unchanged.
type NaughtyStringTestRunner struct {
	faker *gofakeit.Faker
}

// NewNaughtyStringTestRunner returns a runner seeded with seed.
func NewNaughtyStringTestRunner(seed int64) *NaughtyStringTestRunner {
	return &NaughtyStringTestRunner{faker: gofakeit.New(seed)}
}

func (n *NaughtyStringTestRunner) Name() string {
	return "naughty_strings"
}

// Options returns the export options the runner depends on.
func (n *NaughtyStringTestRunner) Options() map[string]string {
	return map[string]string{
		export.OptionEscapeBackslash: "true",
	}
}

func (n *NaughtyStringTestRunner) Prepare(db *sql.DB) error {
	if _, err := db.Exec("CREATE TABLE t (id INT PRIMARY KEY, a TEXT, b BLOB)"); err != nil {
		return errors.WithStack(err)
	}
	values := append([]string(nil), strs...)
	for i := 0; i < randomStrings; i++ {
		values = append(values, n.faker.Sentence(n.faker.Number(1, 20))+n.faker.RandomString(strs))
	}
	for i, str := range values {
		if _, err := db.Exec("INSERT INTO t VALUES (?, ?, ?)", i, str, []byte(str)); err != nil {
			return errors.WithStack(err)
		}
	}
	_, err := db.Exec("CREATE VIEW v_t AS SELECT id, a FROM t WHERE a <> ''")
	return errors.WithStack(err)
}

func (n *NaughtyStringTestRunner) Verify(source, target *sql.DB) error {
	expected, err := readAll(source)
	if err != nil {
		return err
	}
	obtained, err := readAll(target)
	if err != nil {
		return err
	}
	if len(expected) != len(obtained) {
		return errors.Errorf("expect %d rows, got %d", len(expected), len(obtained))
	}
	for i := range expected {
		if expected[i] != obtained[i] {
			return errors.Errorf("row %d: expect %q, got %q", i, expected[i], obtained[i])
		}
	}
	var expectedView, obtainedView int
	if err = source.QueryRow("SELECT COUNT(*) FROM v_t").Scan(&expectedView); err != nil {
		return errors.WithStack(err)
	}
	if err = target.QueryRow("SELECT COUNT(*) FROM v_t").Scan(&obtainedView); err != nil {
		return errors.WithStack(err)
	}
	if expectedView != obtainedView {
		return errors.Errorf("view v_t: expect %d rows, got %d", expectedView, obtainedView)
	}
	return nil
}

func readAll(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT a, b FROM t ORDER BY id")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()
	var result []string
	for rows.Next() {
		var (
			a string
			b []byte
		)
		if err = rows.Scan(&a, &b); err != nil {
			return nil, errors.WithStack(err)
		}
		if a != string(b) {
			return nil, errors.Errorf("text %q and blob %q differ", a, b)
		}
		result = append(result, a)
	}
	return result, errors.WithStack(rows.Err())
}
