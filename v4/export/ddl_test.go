// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const usersCreateSQL = "CREATE TABLE `users` (\n  `id` int NOT NULL,\n  `name` varchar(64) DEFAULT NULL\n) ENGINE=InnoDB"

func TestRewriteTableDDL(t *testing.T) {
	cases := []struct {
		opts     ScriptOptions
		expected string
	}{
		{ScriptOptions{}, usersCreateSQL + ";"},
		{ScriptOptions{AddIfNotExists: true}, strings.Replace(usersCreateSQL, "CREATE TABLE", "CREATE TABLE IF NOT EXISTS", 1) + ";"},
		{ScriptOptions{DropTables: true}, "DROP TABLE IF EXISTS `users`;\n" + usersCreateSQL + ";"},
		{
			ScriptOptions{AddIfNotExists: true, DropTables: true},
			"DROP TABLE IF EXISTS `users`;\n" + strings.Replace(usersCreateSQL, "CREATE TABLE", "CREATE TABLE IF NOT EXISTS", 1) + ";",
		},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, rewriteTableDDL(usersCreateSQL, "users", c.opts))
	}

	guarded := "CREATE TABLE IF NOT EXISTS `t` (`a` int)"
	require.Equal(t, guarded+";", rewriteTableDDL(guarded, "t", ScriptOptions{AddIfNotExists: true}))
}

func TestRewriteViewDDL(t *testing.T) {
	cases := []struct {
		createSQL string
		expected  string
	}{
		{
			"CREATE ALGORITHM=UNDEFINED DEFINER=`root`@`%` SQL SECURITY DEFINER VIEW `v_users` AS select `users`.`id` AS `id` from `users`",
			"CREATE OR REPLACE VIEW `v_users` AS select `users`.`id` AS `id` from `users`;",
		},
		{
			"CREATE VIEW `shop`.`v``odd` (`x`) AS SELECT 1 AS x",
			"CREATE OR REPLACE VIEW `v``odd` (`x`) AS SELECT 1 AS x;",
		},
		{
			"CREATE ALGORITHM=UNDEFINED DEFINER=`root`@`%` SQL SECURITY DEFINER VIEW `v_users` (`c1`,`c2`) AS select 1 AS `1`,2 AS `2`",
			"CREATE OR REPLACE VIEW `v_users` (`c1`,`c2`) AS select 1 AS `1`,2 AS `2`;",
		},
		{
			"CREATE VIEW `v_users` (`a)b`,`c`) AS select 1,2",
			"CREATE OR REPLACE VIEW `v_users` (`a)b`,`c`) AS select 1,2;",
		},
		{
			"CREATE VIEW plain AS SELECT 1",
			"CREATE OR REPLACE VIEW `plain` AS SELECT 1;",
		},
	}
	for _, c := range cases {
		view := "v_users"
		switch {
		case strings.Contains(c.createSQL, "odd"):
			view = "v`odd"
		case strings.Contains(c.createSQL, "plain"):
			view = "plain"
		}
		got, err := rewriteViewDDL(c.createSQL, view)
		require.NoError(t, err)
		require.Equal(t, c.expected, got)
	}

	for _, bad := range []string{
		"CREATE TABLE `t` (`a` int)",
		"CREATE VIEW `v` SELECT 1",
		"CREATE VIEW `v AS SELECT 1",
		"CREATE VIEW `v` (`a`,`b` AS SELECT 1",
	} {
		_, err := rewriteViewDDL(bad, "v")
		require.Error(t, err, bad)
	}
}

func TestWrapChunk(t *testing.T) {
	chunk, err := WrapChunk(ChunkTableDump, "users", "  CREATE TABLE `users` (`id` int);\n")
	require.NoError(t, err)
	require.Equal(t, "-- start table dump : users\nCREATE TABLE `users` (`id` int);\n-- end table dump : users\n", chunk)

	_, err = WrapChunk(ChunkTableDump, "bad\nname", "SELECT 1;")
	require.Error(t, err)
}

func TestGetTableAndViewDDL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SHOW CREATE TABLE `shop`.`users`")).
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("users", usersCreateSQL))
	ddl, err := GetTableDDL(context.Background(), db, "shop", "users", ScriptOptions{AddIfNotExists: true})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ddl, "-- start table dump : users\nCREATE TABLE IF NOT EXISTS `users`"))
	require.True(t, strings.HasSuffix(ddl, ";\n-- end table dump : users\n"))

	mock.ExpectQuery(regexp.QuoteMeta("SHOW CREATE VIEW `shop`.`v_users`")).
		WillReturnRows(sqlmock.NewRows([]string{"View", "Create View"}).
			AddRow("v_users", "CREATE VIEW `v_users` AS select 1 AS `one`"))
	ddl, err = GetViewDDL(context.Background(), db, "shop", "v_users")
	require.NoError(t, err)
	require.Equal(t, "-- start view dump : v_users\nCREATE OR REPLACE VIEW `v_users` AS select 1 AS `one`;\n-- end view dump : v_users\n", ddl)

	mock.ExpectQuery("SHOW CREATE VIEW").WillReturnError(errors.New("view references invalid table"))
	_, err = GetViewDDL(context.Background(), db, "shop", "broken")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
