// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package restore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/mysqlbackup4go/backup4go/v4/archive"
	tcontext "github.com/mysqlbackup4go/backup4go/v4/context"
	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Handle is what an import needs from the target database. *sql.Conn
// satisfies it; session variables set by the batch must survive between
// statements, so a pooled *sql.DB is only safe with one open connection.
//
// Chunk bodies hold several statements (an insert chunk disables keys,
// inserts and enables keys again; a table chunk may drop before it
// creates), so the handle must accept multi-statement queries. With
// go-sql-driver/mysql that is the multiStatements=true DSN parameter, which
// export.Config.DSN always sets.
type Handle interface {
	export.Querier
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// BatchError is the failure of one statement of an import batch.
type BatchError struct {
	// Index is the 0-based position of the failed statement in the plan.
	Index int
	Label string
	// Code is the server error number, 0 if the failure did not come
	// from the server.
	Code uint16
	Err  error
}

func (e *BatchError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("statement %d (%s) failed with error %d: %v", e.Index, e.Label, e.Code, e.Err)
	}
	return fmt.Sprintf("statement %d (%s) failed: %v", e.Index, e.Label, e.Err)
}

// Unwrap returns the cause.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// ImportScript parses script and replays it on handle.
// The whole script is parsed before anything is executed, so a malformed
// script never leaves a partial import behind.
func ImportScript(tctx *tcontext.Context, handle Handle, script string, opts Options) error {
	if strings.TrimSpace(script) == "" {
		return export.NewError(export.ErrConfiguration, "", errors.New("script is empty"))
	}
	chunks, err := ParseChunks(script)
	if err != nil {
		return err
	}
	tctx.L().Debug("script parsed", zap.Int("chunks", len(chunks)))

	var existing *export.Catalog
	if opts.clearsExisting() {
		database, err := resolveDatabase(tctx, handle, opts.Database)
		if err != nil {
			return err
		}
		if existing, err = export.ListObjects(tctx, handle, database); err != nil {
			return err
		}
	}

	plan := BuildPlan(chunks, existing, opts)
	return executePlan(tctx, handle, plan)
}

func resolveDatabase(ctx context.Context, handle Handle, database string) (string, error) {
	if database != "" {
		return database, nil
	}
	current, err := export.SelectDatabase(ctx, handle)
	if err != nil {
		return "", export.NewError(export.ErrCatalog, "", err)
	}
	if current == "" {
		return "", export.NewError(export.ErrConfiguration, "", errors.New("no database selected on the target connection"))
	}
	return current, nil
}

func executePlan(tctx *tcontext.Context, handle Handle, plan []Statement) error {
	start := time.Now()
	defer func() {
		importDurationHistogram.Observe(time.Since(start).Seconds())
	}()
	for i, stmt := range plan {
		res, err := handle.ExecContext(tctx, stmt.SQL)
		if err != nil {
			batchErr := &BatchError{Index: i, Label: stmt.Label, Err: err}
			var myErr *mysql.MySQLError
			if errors.As(err, &myErr) {
				batchErr.Code = myErr.Number
			}
			tctx.L().Error("import statement failed",
				zap.Int("index", i),
				zap.String("label", stmt.Label),
				zap.Uint16("code", batchErr.Code),
				zap.Error(err))
			if i > 0 && stmt.SQL != enableForeignKeyChecks {
				if _, fkErr := handle.ExecContext(tctx, enableForeignKeyChecks); fkErr != nil {
					tctx.L().Warn("fail to re-enable foreign key checks", zap.Error(fkErr))
				}
			}
			return export.NewError(export.ErrImportBatch, stmt.Label, batchErr)
		}
		executedStatementsCounter.Inc()
		affected, err := res.RowsAffected()
		if err != nil {
			affected = -1
		}
		tctx.L().Debug("import statement executed",
			zap.Int("index", i),
			zap.String("label", stmt.Label),
			zap.Int64("affected", affected))
	}
	tctx.L().Info("import batch finished",
		zap.Int("statements", len(plan)),
		zap.Duration("cost", time.Since(start)))
	return nil
}

// OptionsFromConfig returns the import options of conf.
func OptionsFromConfig(conf *export.Config) Options {
	return Options{
		DeleteExisting: conf.DeleteExistingData,
		DropExisting:   conf.DropTables,
		Database:       conf.Database,
	}
}

// Import opens the configured database and replays script on it using one
// dedicated connection, which is released on every exit path.
func Import(tctx *tcontext.Context, conf *export.Config, script string) (err error) {
	runID := uuid.New().String()
	tctx = tctx.WithRunID(runID)

	db, err := conf.Open()
	if err != nil {
		return export.NewError(export.ErrConfiguration, conf.Database, err)
	}
	defer db.Close()

	conn, err := db.Conn(tctx)
	if err != nil {
		return export.NewError(export.ErrImportBatch, conf.Database, err)
	}
	defer conn.Close()

	if err = ImportScript(tctx, conn, script, OptionsFromConfig(conf)); err != nil {
		return err
	}
	tctx.L().Info("import finished", zap.String("database", conf.Database))
	return nil
}

// ImportFile reads a script from a plain .sql file or from an archive
// written by the export and imports it.
func ImportFile(tctx *tcontext.Context, conf *export.Config, path string) error {
	script, err := archive.ReadScript(path)
	if err != nil {
		return export.NewError(export.ErrConfiguration, path, err)
	}
	return Import(tctx, conf, script)
}
