// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mysqlbackup4go/backup4go/v4/archive"
	tcontext "github.com/mysqlbackup4go/backup4go/v4/context"
	"github.com/mysqlbackup4go/backup4go/v4/notify"
	"github.com/mysqlbackup4go/backup4go/v4/storage"
	tf "github.com/pingcap/tidb-tools/pkg/table-filter"
	"go.uber.org/zap"
)

const (
	toolName         = "backup4go"
	sqlDirName       = "sql"
	sqlExtension     = ".sql"
	manifestSuffix   = ".manifest.yaml"
	fileNameLayout   = "2_1_2006_15_04_05"
	headerDateLayout = "2-1-2006 15:04:05"
)

var preamble = []string{
	"/*!40101 SET @OLD_CHARACTER_SET_CLIENT=@@CHARACTER_SET_CLIENT */;",
	"/*!40101 SET NAMES utf8 */;",
	"/*!50503 SET NAMES utf8mb4 */;",
	"/*!40014 SET @OLD_FOREIGN_KEY_CHECKS=@@FOREIGN_KEY_CHECKS, FOREIGN_KEY_CHECKS=0 */;",
	"/*!40101 SET @OLD_SQL_MODE=@@SQL_MODE, SQL_MODE='NO_AUTO_VALUE_ON_ZERO' */;",
}

var postamble = []string{
	"/*!40101 SET SQL_MODE=IFNULL(@OLD_SQL_MODE, '') */;",
	"/*!40014 SET FOREIGN_KEY_CHECKS=IF(@OLD_FOREIGN_KEY_CHECKS IS NULL, 1, @OLD_FOREIGN_KEY_CHECKS) */;",
	"/*!40101 SET CHARACTER_SET_CLIENT=@OLD_CHARACTER_SET_CLIENT */;",
}

// Header is the identity block written at the top of a script.
type Header struct {
	Database    string
	Server      ServerInfo
	GeneratedAt time.Time
}

// Script is a generated dump and the objects it was assembled from.
type Script struct {
	SQL         string
	Server      ServerInfo
	GeneratedAt time.Time
	Objects     []*ObjectScript
	Skipped     []SkippedObject
}

// Result is the outcome of Dump.
type Result struct {
	RunID        string
	Script       *Script
	SQLFile      string
	ManifestFile string
	ArchiveFile  string
	ObjectKey    string
}

// Rows returns the exported row count per table.
func (r *Result) Rows() map[string]uint64 {
	rows := make(map[string]uint64)
	for _, obj := range r.Script.Objects {
		if obj.Type == TableTypeBase {
			rows[obj.Name] = obj.Rows
		}
	}
	return rows
}

// AssembleDump concatenates the header, the preamble, every object script in
// order and the postamble.
func AssembleDump(header Header, objects []*ObjectScript) string {
	var b strings.Builder
	b.WriteString("--\n")
	b.WriteString("-- Generated by ")
	b.WriteString(toolName)
	b.WriteString("\n-- Date: ")
	b.WriteString(header.GeneratedAt.Format(headerDateLayout))
	if header.Database != "" {
		b.WriteString("\n-- Database: ")
		b.WriteString(strings.NewReplacer("\n", " ", "\r", " ").Replace(header.Database))
	}
	if header.Server.ServerType != ServerTypeUnknown {
		b.WriteString("\n-- Server: ")
		b.WriteString(header.Server.String())
	}
	b.WriteString("\n--\n\n")
	for _, line := range preamble {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	for _, obj := range objects {
		if obj.Type != TableTypeBase {
			continue
		}
		b.WriteString(obj.String())
		b.WriteByte('\n')
	}
	for _, obj := range objects {
		if obj.Type != TableTypeView {
			continue
		}
		b.WriteString(obj.String())
		b.WriteByte('\n')
	}

	for _, line := range postamble {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// BuildObjectScripts extracts every entry in catalog order. An entry that
// fails is logged and skipped.
func BuildObjectScripts(tctx *tcontext.Context, db Querier, database string, entries []*TableInfo, opts ScriptOptions) ([]*ObjectScript, []SkippedObject) {
	objects := make([]*ObjectScript, 0, len(entries))
	var skipped []SkippedObject
	for _, entry := range entries {
		var (
			obj *ObjectScript
			err error
		)
		if entry.Type == TableTypeView {
			obj, err = NewViewScript(tctx, db, database, entry.Name)
		} else {
			obj, err = NewTableScript(tctx, db, database, entry.Name, opts)
		}
		if err != nil {
			observeError(err)
			tctx.L().Warn("skip object",
				zap.String("table", entry.Name),
				zap.Stringer("type", entry.Type),
				zap.Error(err))
			skipped = append(skipped, SkippedObject{Name: entry.Name, Type: entry.Type, Err: err})
			continue
		}
		finishedRowsCounter.Add(float64(obj.Rows))
		tctx.L().Debug("object extracted",
			zap.String("table", entry.Name),
			zap.Stringer("type", entry.Type),
			zap.Uint64("rows", obj.Rows))
		objects = append(objects, obj)
	}
	return objects, skipped
}

// GenerateScript reads the catalog of database and generates its script.
// A catalog failure aborts the run.
func GenerateScript(tctx *tcontext.Context, db Querier, database string, tableFilter tf.Filter, opts ScriptOptions) (*Script, error) {
	serverInfo := prepareServerInfo(tctx, db)
	catalog, err := prepareCatalog(tctx, db, database, tableFilter)
	if err != nil {
		return nil, err
	}

	objects, skipped := BuildObjectScripts(tctx, db, database, catalog.Entries(), opts)
	script := &Script{
		Server:      serverInfo,
		GeneratedAt: time.Now(),
		Objects:     objects,
		Skipped:     skipped,
	}
	script.SQL = AssembleDump(Header{
		Database:    database,
		Server:      serverInfo,
		GeneratedAt: script.GeneratedAt,
	}, objects)
	return script, nil
}

// ScriptFileName returns the name of the script file of conf.
func ScriptFileName(conf *Config, now time.Time) string {
	if conf.SQLFileName != "" {
		if strings.HasSuffix(conf.SQLFileName, sqlExtension) {
			return conf.SQLFileName
		}
		return conf.SQLFileName + sqlExtension
	}
	return fmt.Sprintf("%s_%s_database_dump%s", now.Format(fileNameLayout), conf.Database, sqlExtension)
}

// Dump exports the configured database: it generates the script, persists it
// with its manifest, packages both, optionally mails and uploads the
// archive, then clears temporary files.
func Dump(tctx *tcontext.Context, conf *Config) (result *Result, err error) {
	defer func() {
		if err != nil {
			observeError(err)
		}
	}()
	runID := uuid.New().String()
	tctx = tctx.WithRunID(runID)

	db, err := conf.Open()
	if err != nil {
		return nil, NewError(ErrConfiguration, conf.Database, err)
	}
	defer db.Close()

	script, err := generateOnConn(tctx, db, conf)
	if err != nil {
		return nil, err
	}
	result = &Result{RunID: runID, Script: script}

	sqlDir := filepath.Join(conf.TempDir, sqlDirName)
	writer, err := NewScriptWriter(sqlDir)
	if err != nil {
		return nil, err
	}
	fileName := ScriptFileName(conf, script.GeneratedAt)
	if result.SQLFile, err = writer.WriteScript(tctx, fileName, script.SQL); err != nil {
		return nil, err
	}
	baseName := strings.TrimSuffix(fileName, sqlExtension)
	manifest := NewManifest(runID, conf.Database, fileName, script)
	if result.ManifestFile, err = writer.WriteManifest(tctx, baseName+manifestSuffix, manifest); err != nil {
		return nil, err
	}

	result.ArchiveFile = filepath.Join(conf.TempDir, baseName+conf.ArchiveFormat.Extension())
	if err = archive.Pack(result.ArchiveFile, conf.ArchiveFormat, result.SQLFile, result.ManifestFile); err != nil {
		return nil, NewError(ErrPersistence, result.ArchiveFile, err)
	}

	if conf.Email.Enabled() {
		mailArchive(tctx, conf, baseName, result.ArchiveFile)
	}
	if conf.S3.Enabled() {
		if result.ObjectKey, err = uploadArchive(tctx, conf.S3, result.ArchiveFile); err != nil {
			return nil, err
		}
	}

	clearTempFiles(tctx, conf, result)
	tctx.L().Info("dump finished",
		zap.String("database", conf.Database),
		zap.Int("objects", len(script.Objects)),
		zap.Int("skipped", len(script.Skipped)))
	return result, nil
}

// generateOnConn holds one connection for the whole generation.
func generateOnConn(tctx *tcontext.Context, db *sql.DB, conf *Config) (*Script, error) {
	conn, err := db.Conn(tctx)
	if err != nil {
		return nil, NewError(ErrCatalog, conf.Database, err)
	}
	defer conn.Close()
	return GenerateScript(tctx, conn, conf.Database, conf.TableFilter, conf.ScriptOptions())
}

func mailArchive(tctx *tcontext.Context, conf *Config, baseName, archiveFile string) {
	emailConf := conf.Email
	if emailConf.Subject == "" {
		emailConf.Subject = baseName
	}
	if emailConf.Message == "" {
		emailConf.Message = "Please find attached database backup of " + conf.Database
	}
	mailer, err := notify.NewMailer(emailConf)
	if err != nil {
		tctx.L().Error("unable to create mailer", zap.Error(err))
		return
	}
	if err = mailer.SendAttachment(tctx, archiveFile); err != nil {
		tctx.L().Error("unable to send archive as mail attachment", zap.Error(err))
		return
	}
	tctx.L().Debug("archive sent as mail attachment", zap.String("to", emailConf.To))
}

func uploadArchive(ctx context.Context, conf storage.Config, archiveFile string) (string, error) {
	uploader, err := storage.NewUploader(ctx, conf)
	if err != nil {
		return "", NewError(ErrPersistence, archiveFile, err)
	}
	key, err := uploader.Upload(ctx, archiveFile)
	if err != nil {
		return "", NewError(ErrPersistence, archiveFile, err)
	}
	return key, nil
}

// clearTempFiles removes the generated files the configuration does not
// preserve. Paths of removed files are cleared in result.
func clearTempFiles(tctx *tcontext.Context, conf *Config, result *Result) {
	remove := func(path *string) {
		if *path == "" {
			return
		}
		if err := os.Remove(*path); err != nil && !os.IsNotExist(err) {
			tctx.L().Warn("fail to clear temp file", zap.String("path", *path), zap.Error(err))
			return
		}
		tctx.L().Debug("temp file cleared", zap.String("path", *path))
		*path = ""
	}
	if !conf.PreserveGeneratedSQLFile {
		remove(&result.SQLFile)
		remove(&result.ManifestFile)
		// only succeeds when nothing else is left in it
		_ = os.Remove(filepath.Join(conf.TempDir, sqlDirName))
	}
	if !conf.PreserveGeneratedZip {
		remove(&result.ArchiveFile)
		_ = os.Remove(conf.TempDir)
	}
}
