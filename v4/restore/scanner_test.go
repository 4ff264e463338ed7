// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package restore

import (
	"testing"

	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestChunkScanner(t *testing.T) {
	script := "--\n-- Generated by backup4go\n--\n\n" +
		"/*!40101 SET NAMES utf8 */;\n\n" +
		"-- start table dump : users\n" +
		"CREATE TABLE `users` (`id` int);\n" +
		"-- end table dump : users\n\n" +
		"-- start table insert : users\r\n" +
		"INSERT INTO `users` (`id`) VALUES (1), (2);\r\n" +
		"-- end table insert : users\r\n" +
		"-- start view dump : v\n" +
		"-- end view dump : v\n"

	scanner := NewChunkScanner(script)
	var chunks []Chunk
	for scanner.Scan() {
		chunks = append(chunks, scanner.Chunk())
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, []Chunk{
		{Label: "table dump : users", Body: "CREATE TABLE `users` (`id` int);", Line: 7},
		{Label: "table insert : users", Body: "INSERT INTO `users` (`id`) VALUES (1), (2);", Line: 11},
		{Label: "view dump : v", Body: "", Line: 14},
	}, chunks)
}

func TestChunkScannerIgnoresMarkersInsideLines(t *testing.T) {
	script := "-- start table insert : t\n" +
		"INSERT INTO `t` (`a`) VALUES ('x -- end table insert : t'), ('-- start y');\n" +
		"-- end table insert : t\n" +
		"-- ended\n" +
		"-- starting\n"
	chunks, err := ParseChunks(script)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Body, "'x -- end table insert : t'")
}

func TestChunkScannerMalformed(t *testing.T) {
	cases := []struct {
		name   string
		script string
		errMsg string
	}{
		{
			name:   "end without start",
			script: "SELECT 1;\n-- end table dump : t\n",
			errMsg: "without start marker",
		},
		{
			name:   "start without end",
			script: "-- start table dump : t\nCREATE TABLE t (a int);\n",
			errMsg: "has no end marker",
		},
		{
			name:   "nested start",
			script: "-- start table dump : t\n-- start table insert : t\n-- end table insert : t\n-- end table dump : t\n",
			errMsg: "inside open chunk",
		},
		{
			name:   "mismatched end",
			script: "-- start table dump : t\n-- end table dump : u\n",
			errMsg: "does not match",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			chunks, err := ParseChunks(c.script)
			require.Nil(t, chunks)
			require.Error(t, err)
			require.True(t, errors.Is(err, export.ErrImportParse))
			require.Contains(t, err.Error(), c.errMsg)
		})
	}
}

func TestChunkScannerStopsAfterError(t *testing.T) {
	scanner := NewChunkScanner("-- end view dump : v\n-- start view dump : w\n-- end view dump : w\n")
	require.False(t, scanner.Scan())
	require.Error(t, scanner.Err())
	require.False(t, scanner.Scan())
	require.Equal(t, Chunk{}, scanner.Chunk())
}

func TestChunkScannerRoundTripsWrappedChunks(t *testing.T) {
	ddl, err := export.WrapChunk(export.ChunkTableDump, "o'rders", "CREATE TABLE `o'rders` (`id` int);")
	require.NoError(t, err)
	view, err := export.WrapChunk(export.ChunkViewDump, "v", "CREATE OR REPLACE VIEW `v` AS select 1;")
	require.NoError(t, err)

	chunks, err := ParseChunks(ddl + "\n" + view)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, export.ChunkLabel(export.ChunkTableDump, "o'rders"), chunks[0].Label)
	require.Equal(t, "CREATE TABLE `o'rders` (`id` int);", chunks[0].Body)
	require.Equal(t, export.ChunkLabel(export.ChunkViewDump, "v"), chunks[1].Label)
}
