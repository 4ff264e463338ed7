// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"os"
	"path/filepath"
	"time"

	tcontext "github.com/mysqlbackup4go/backup4go/v4/context"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manifest describes one generated script.
type Manifest struct {
	RunID       string            `yaml:"run_id"`
	Database    string            `yaml:"database"`
	Server      string            `yaml:"server"`
	GeneratedAt time.Time         `yaml:"generated_at"`
	ScriptFile  string            `yaml:"script_file"`
	Tables      []ManifestTable   `yaml:"tables"`
	Views       []string          `yaml:"views,omitempty"`
	Skipped     []ManifestSkipped `yaml:"skipped,omitempty"`
}

// ManifestTable is the row count of one exported table.
type ManifestTable struct {
	Name string `yaml:"name"`
	Rows uint64 `yaml:"rows"`
}

// ManifestSkipped is an object left out of the script.
type ManifestSkipped struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Error string `yaml:"error"`
}

// NewManifest summarises script.
func NewManifest(runID, database, scriptFile string, script *Script) *Manifest {
	m := &Manifest{
		RunID:       runID,
		Database:    database,
		Server:      script.Server.String(),
		GeneratedAt: script.GeneratedAt,
		ScriptFile:  scriptFile,
		Tables:      []ManifestTable{},
	}
	for _, obj := range script.Objects {
		if obj.Type == TableTypeView {
			m.Views = append(m.Views, obj.Name)
			continue
		}
		m.Tables = append(m.Tables, ManifestTable{Name: obj.Name, Rows: obj.Rows})
	}
	for _, skipped := range script.Skipped {
		m.Skipped = append(m.Skipped, ManifestSkipped{
			Name:  skipped.Name,
			Type:  skipped.Type.String(),
			Error: skipped.Err.Error(),
		})
	}
	return m
}

// TableRows returns the row count per table.
func (m *Manifest) TableRows() map[string]uint64 {
	rows := make(map[string]uint64, len(m.Tables))
	for _, table := range m.Tables {
		rows[table.Name] = table.Rows
	}
	return rows
}

// WriteManifest writes m as YAML to the file name and returns its path.
func (w *ScriptWriter) WriteManifest(tctx *tcontext.Context, name string, m *Manifest) (string, error) {
	content, err := yaml.Marshal(m)
	if err != nil {
		return "", NewError(ErrPersistence, name, err)
	}
	path := filepath.Join(w.dir, name)
	if _, err = writeToFile(path, string(content)); err != nil {
		return "", NewError(ErrPersistence, path, err)
	}
	tctx.L().Debug("manifest written", zap.String("path", path))
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	m := &Manifest{}
	if err = yaml.Unmarshal(content, m); err != nil {
		return nil, errors.Wrapf(err, "parse manifest %s", path)
	}
	return m, nil
}
