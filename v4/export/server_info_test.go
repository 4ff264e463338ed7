// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestParseServerInfo(t *testing.T) {
	cases := []struct {
		version             string
		serverType          ServerType
		major, minor, patch int64
	}{
		{"8.0.18", ServerTypeMySQL, 8, 0, 18},
		{"5.7.31-log", ServerTypeMySQL, 5, 7, 31},
		{"10.4.10-MariaDB-1:10.4.10+maria~bionic", ServerTypeMariaDB, 10, 4, 10},
		{"5.7.25-TiDB-v4.0.0-alpha-1263-g635f2e1af", ServerTypeTiDB, 4, 0, 0},
		{"5.7.25-TiDB-v3.0.7-58-g6adce2367", ServerTypeTiDB, 3, 0, 7},
	}
	for _, c := range cases {
		info := ParseServerInfo(c.version)
		require.Equal(t, c.serverType, info.ServerType, c.version)
		require.NotNil(t, info.ServerVersion, c.version)
		require.Equal(t, c.major, info.ServerVersion.Major, c.version)
		require.Equal(t, c.minor, info.ServerVersion.Minor, c.version)
		require.Equal(t, c.patch, info.ServerVersion.Patch, c.version)
	}

	info := ParseServerInfo("not a version")
	require.Equal(t, ServerTypeUnknown, info.ServerType)
	require.Nil(t, info.ServerVersion)
	require.Equal(t, "Unknown", info.String())
}

func TestDetectServerInfo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT version()").
		WillReturnRows(sqlmock.NewRows([]string{"version()"}).AddRow("8.0.34"))
	info, err := detectServerInfo(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, "MySQL 8.0.34", info.String())
	require.NoError(t, mock.ExpectationsWereMet())
}
