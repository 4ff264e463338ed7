// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"testing"

	"github.com/mysqlbackup4go/backup4go/cmd/integration_test/naughty_strings"
	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/stretchr/testify/require"
)

func TestBuildConfigPerDatabase(t *testing.T) {
	runner := naughty_strings.NewNaughtyStringTestRunner(1)

	source := buildConfig(runner, sourceDatabaseName, nil)
	target := buildConfig(runner, targetDatabaseName, map[string]string{
		export.OptionDropTables: "true",
	})

	require.Equal(t, sourceDatabaseName, source.Database)
	require.False(t, source.DropTables)
	require.Equal(t, targetDatabaseName, target.Database)
	require.True(t, target.DropTables)
	require.True(t, source.EscapeBackslash)
	require.True(t, source.PreserveGeneratedSQLFile)
	require.Equal(t, source.TempDir, target.TempDir)
}
