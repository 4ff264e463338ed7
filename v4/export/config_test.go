// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mysqlbackup4go/backup4go/v4/archive"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestConfigFromOptionsDefaults(t *testing.T) {
	conf, err := ConfigFromOptions(map[string]string{
		OptionDBName:     "shop",
		OptionDBUsername: "root",
		OptionDBPassword: "",
	})
	require.NoError(t, err)
	require.Equal(t, "shop", conf.Database)
	require.Equal(t, "localhost", conf.Host)
	require.Equal(t, 3306, conf.Port)
	require.Equal(t, "mysql", conf.DriverName)
	require.Equal(t, defaultTempDir, conf.TempDir)
	require.True(t, conf.AddIfNotExists)
	require.False(t, conf.DropTables)
	require.False(t, conf.DeleteExistingData)
	require.True(t, conf.EscapeBackslash)
	require.Equal(t, archive.FormatZip, conf.ArchiveFormat)
	require.True(t, conf.TableFilter.MatchTable("shop", "users"))
	require.False(t, conf.Email.Enabled())
	require.False(t, conf.S3.Enabled())
	require.Equal(t, ScriptOptions{AddIfNotExists: true, EscapeBackslash: true}, conf.ScriptOptions())
}

func TestConfigFromConnectionString(t *testing.T) {
	conf, err := ConfigFromOptions(map[string]string{
		OptionJDBCConnectionString: "jdbc:mysql://db.internal:3307/shop?useSSL=false&serverTimezone=UTC",
		OptionJDBCDriverName:       "com.mysql.cj.jdbc.Driver",
		OptionDBUsername:           "backup",
		OptionDBPassword:           "s3cret",
		OptionDropTables:           "true",
		OptionDeleteExistingData:   "TRUE",
		OptionArchiveFormat:        "zstd",
		OptionEscapeBackslash:      "0",
	})
	require.NoError(t, err)
	require.Equal(t, "shop", conf.Database)
	require.Equal(t, "db.internal", conf.Host)
	require.Equal(t, 3307, conf.Port)
	require.Equal(t, "mysql", conf.DriverName)
	require.True(t, conf.DropTables)
	require.True(t, conf.DeleteExistingData)
	require.False(t, conf.EscapeBackslash)
	require.Equal(t, archive.FormatZstd, conf.ArchiveFormat)

	dsn, err := mysql.ParseDSN(conf.DSN())
	require.NoError(t, err)
	require.Equal(t, "backup", dsn.User)
	require.Equal(t, "s3cret", dsn.Passwd)
	require.Equal(t, "db.internal:3307", dsn.Addr)
	require.Equal(t, "shop", dsn.DBName)
	require.True(t, dsn.MultiStatements)
	require.False(t, dsn.ParseTime)
	require.NotContains(t, conf.DSN(), "serverTimezone")
}

func TestConfigFromOptionsAggregatesErrors(t *testing.T) {
	_, err := ConfigFromOptions(map[string]string{
		OptionDBPort:         "http",
		OptionDropTables:     "maybe",
		OptionArchiveFormat:  "rar",
		OptionJDBCDriverName: "postgres",
		OptionS3Bucket:       "backups",
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfiguration))

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	problems := multierr.Errors(errors.Cause(cfgErr.Err))
	require.Len(t, problems, 8)
	for _, key := range []string{OptionDBUsername, OptionDBPassword, OptionDBName, OptionDBPort, OptionDropTables, OptionArchiveFormat, OptionJDBCDriverName, OptionS3Region} {
		require.Contains(t, err.Error(), key)
	}
}

func TestExtractDatabaseName(t *testing.T) {
	for connString, expected := range map[string]string{
		"jdbc:proto://h:3306/mydb?x=1": "mydb",
		"jdbc:proto://h:3306/mydb":     "mydb",
		"mysql://h/mydb?a=1&b=/x":      "mydb",
	} {
		got, err := ExtractDatabaseName(connString)
		require.NoError(t, err, connString)
		require.Equal(t, expected, got, connString)
	}

	for _, bad := range []string{"", "   ", "jdbc:proto://h:3306/", "jdbc:proto://h:3306/?x=1",
		"jdbc:proto://h:3306", "jdbc:proto://h:3306?x=1/y", "mydb"} {
		_, err := ExtractDatabaseName(bad)
		require.Error(t, err, bad)
		require.True(t, errors.Is(err, ErrConfiguration), bad)
	}
}

func TestConfigFromOptionsRejectsConnectionStringWithoutPath(t *testing.T) {
	_, err := ConfigFromOptions(map[string]string{
		OptionDBUsername:           "root",
		OptionDBPassword:           "",
		OptionJDBCConnectionString: "jdbc:mysql://db.internal:3307",
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfiguration))
	require.Contains(t, err.Error(), "no database path")
}
