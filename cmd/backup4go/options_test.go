// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestFlagName(t *testing.T) {
	require.Equal(t, "db-name", flagName(export.OptionDBName))
	require.Equal(t, "preserve-generated-sql-file", flagName(export.OptionPreserveGeneratedSQLFile))
	require.Equal(t, "s3_force_path_style", viperKey(export.OptionS3ForcePathStyle))
}

func TestCollectOptions(t *testing.T) {
	t.Setenv("BACKUP4GO_DB_USERNAME", "from-env")
	t.Setenv("BACKUP4GO_DB_PASSWORD", "")
	t.Setenv("BACKUP4GO_DB_HOST", "env-host")

	configFile := filepath.Join(t.TempDir(), "backup4go.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("db_name: shop\ndb_host: file-host\narchive_format: zstd\n"), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	defineOptionFlags(flags)
	require.NoError(t, flags.Parse([]string{"--drop-tables", "--db-port=3307", "--db-host=flag-host"}))

	v := newViper()
	require.NoError(t, bindOptionFlags(v, flags))
	v.SetConfigFile(configFile)
	require.NoError(t, v.ReadInConfig())

	options := collectOptions(v)
	require.Equal(t, map[string]string{
		export.OptionDBName:        "shop",
		export.OptionDBUsername:    "from-env",
		export.OptionDBPassword:    "",
		export.OptionDBHost:        "flag-host",
		export.OptionDBPort:        "3307",
		export.OptionDropTables:    "true",
		export.OptionArchiveFormat: "zstd",
	}, options)

	conf, err := export.ConfigFromOptions(options)
	require.NoError(t, err)
	require.Equal(t, "flag-host", conf.Host)
	require.Equal(t, 3307, conf.Port)
	require.True(t, conf.DropTables)
	require.True(t, conf.AddIfNotExists)
}

func TestRootCmdRequiresOptions(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"export", "--log-level=error", "--temp-dir", t.TempDir()})
	err := cmd.Execute()
	require.Error(t, err)
	require.ErrorIs(t, err, export.ErrConfiguration)
}

func TestImportCmdArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"import"})
	require.Error(t, cmd.Execute())
}
