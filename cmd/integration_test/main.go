// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/mysqlbackup4go/backup4go/cmd/integration_test/naughty_strings"
	tcontext "github.com/mysqlbackup4go/backup4go/v4/context"
	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/mysqlbackup4go/backup4go/v4/log"
	"github.com/mysqlbackup4go/backup4go/v4/restore"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	sourceDatabaseName = "backup4go_test_source"
	targetDatabaseName = "backup4go_test_target"
)

// TestRunner seeds the source database and checks the restored target.
type TestRunner interface {
	Name() string
	Options() map[string]string
	Prepare(db *sql.DB) error
	Verify(source, target *sql.DB) error
}

var (
	host     string
	port     int
	user     string
	password string
	seed     int64
)

func init() {
	flag.StringVar(&host, "host", "127.0.0.1", "MySQL host")
	flag.IntVar(&port, "port", 3306, "MySQL port")
	flag.StringVar(&user, "user", "root", "MySQL user")
	flag.StringVar(&password, "password", "", "MySQL password")
	flag.Int64Var(&seed, "seed", 1, "seed of generated test data")
}

func main() {
	flag.Parse()
	allTestRunners := []TestRunner{
		naughty_strings.NewNaughtyStringTestRunner(seed),
	}

	for _, runner := range allTestRunners {
		logger := log.Zap().With(zap.String("runner", runner.Name()))
		tctx := tcontext.Background().WithLogger(logger)

		sourceConf := buildConfig(runner, sourceDatabaseName, nil)
		source := setupTestDB(sourceConf)
		assertNil(runner.Prepare(source))

		result, err := export.Dump(tctx, sourceConf)
		assertNil(err)
		manifest, err := export.ReadManifest(result.ManifestFile)
		assertNil(err)

		targetConf := buildConfig(runner, targetDatabaseName, map[string]string{
			export.OptionDropTables: "true",
		})
		target := setupTestDB(targetConf)
		// the second import checks that replaying over a restored database is idempotent
		for i := 0; i < 2; i++ {
			assertNil(restore.ImportFile(tctx, targetConf, result.SQLFile))
			assertRowCounts(manifest.TableRows(), target)
			assertNil(runner.Verify(source, target))
		}

		assertNil(source.Close())
		assertNil(target.Close())
		assertNil(os.RemoveAll(sourceConf.TempDir))
		logger.Info("round trip passed", zap.Int("tables", len(manifest.Tables)), zap.Int("views", len(manifest.Views)))
	}
}

func buildConfig(runner TestRunner, database string, extra map[string]string) *export.Config {
	options := map[string]string{
		export.OptionDBName:                   database,
		export.OptionDBHost:                   host,
		export.OptionDBPort:                   strconv.Itoa(port),
		export.OptionDBUsername:               user,
		export.OptionDBPassword:               password,
		export.OptionTempDir:                  filepath.Join(os.TempDir(), "test-backup4go"),
		export.OptionPreserveGeneratedSQLFile: "true",
	}
	for k, v := range runner.Options() {
		options[k] = v
	}
	for k, v := range extra {
		options[k] = v
	}
	conf, err := export.ConfigFromOptions(options)
	assertNil(err)
	return conf
}

// setupTestDB recreates the database of conf and returns a handle on it.
func setupTestDB(conf *export.Config) *sql.DB {
	database := conf.Database
	adminConf, err := mysql.ParseDSN(conf.DSN())
	assertNil(err)
	adminConf.DBName = ""
	admin, err := sql.Open(conf.DriverName, adminConf.FormatDSN())
	assertNil(err)
	_, err = admin.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", database))
	assertNil(err)
	_, err = admin.Exec(fmt.Sprintf("CREATE DATABASE `%s` DEFAULT CHARACTER SET utf8mb4", database))
	assertNil(err)
	assertNil(admin.Close())

	db, err := conf.Open()
	assertNil(err)
	db.SetMaxOpenConns(1)
	return db
}

func assertRowCounts(expected map[string]uint64, target *sql.DB) {
	for table, rows := range expected {
		var count uint64
		err := target.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM `%s`", table)).Scan(&count)
		assertNil(err)
		if count != rows {
			log.Zap().Fatal("row count differs", zap.String("table", table), zap.Uint64("expected", rows), zap.Uint64("obtained", count))
		}
	}
}

func assertNil(err error) {
	if err != nil {
		log.Zap().Fatal("integration test failed", zap.Error(errors.WithStack(err)))
	}
}
