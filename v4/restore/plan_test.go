// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package restore

import (
	"testing"

	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/stretchr/testify/require"
)

func planSQL(plan []Statement) []string {
	stmts := make([]string, 0, len(plan))
	for _, stmt := range plan {
		stmts = append(stmts, stmt.SQL)
	}
	return stmts
}

func TestBuildPlan(t *testing.T) {
	chunks := []Chunk{
		{Label: "table dump : users", Body: "CREATE TABLE `users` (`id` int);"},
		{Label: "view dump : v", Body: ""},
		{Label: "table insert : users", Body: "INSERT INTO `users` (`id`) VALUES (1);"},
	}
	existing := &export.Catalog{Tables: []string{"users", "odd`name"}, Views: []string{"v"}}

	cases := []struct {
		name   string
		opts   Options
		expect []string
	}{
		{
			name: "keep existing",
			opts: Options{},
			expect: []string{
				"SET FOREIGN_KEY_CHECKS = 0",
				"CREATE TABLE `users` (`id` int);",
				"INSERT INTO `users` (`id`) VALUES (1);",
				"SET FOREIGN_KEY_CHECKS = 1",
			},
		},
		{
			name: "delete existing",
			opts: Options{DeleteExisting: true},
			expect: []string{
				"SET FOREIGN_KEY_CHECKS = 0",
				"DELETE FROM `users`",
				"DELETE FROM `odd``name`",
				"CREATE TABLE `users` (`id` int);",
				"INSERT INTO `users` (`id`) VALUES (1);",
				"SET FOREIGN_KEY_CHECKS = 1",
			},
		},
		{
			name: "drop existing",
			opts: Options{DropExisting: true},
			expect: []string{
				"SET FOREIGN_KEY_CHECKS = 0",
				"DROP TABLE IF EXISTS `users`",
				"DROP TABLE IF EXISTS `odd``name`",
				"DROP VIEW IF EXISTS `v`",
				"CREATE TABLE `users` (`id` int);",
				"INSERT INTO `users` (`id`) VALUES (1);",
				"SET FOREIGN_KEY_CHECKS = 1",
			},
		},
		{
			name: "drop takes precedence over delete",
			opts: Options{DropExisting: true, DeleteExisting: true},
			expect: []string{
				"SET FOREIGN_KEY_CHECKS = 0",
				"DROP TABLE IF EXISTS `users`",
				"DROP TABLE IF EXISTS `odd``name`",
				"DROP VIEW IF EXISTS `v`",
				"CREATE TABLE `users` (`id` int);",
				"INSERT INTO `users` (`id`) VALUES (1);",
				"SET FOREIGN_KEY_CHECKS = 1",
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expect, planSQL(BuildPlan(chunks, existing, c.opts)))
		})
	}
}

func TestBuildPlanEmpty(t *testing.T) {
	plan := BuildPlan(nil, nil, Options{DropExisting: true})
	require.Equal(t, []string{"SET FOREIGN_KEY_CHECKS = 0", "SET FOREIGN_KEY_CHECKS = 1"}, planSQL(plan))
	require.Equal(t, "setup", plan[0].Label)
	require.Equal(t, "teardown", plan[1].Label)
}
