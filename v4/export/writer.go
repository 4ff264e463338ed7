// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	tcontext "github.com/mysqlbackup4go/backup4go/v4/context"
	"go.uber.org/zap"
)

// ScriptWriter persists generated scripts under one directory.
type ScriptWriter struct {
	dir string
}

// NewScriptWriter creates dir if needed and returns a writer on it.
func NewScriptWriter(dir string) (*ScriptWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewError(ErrPersistence, dir, err)
	}
	return &ScriptWriter{dir: dir}, nil
}

// Dir returns the output directory.
func (w *ScriptWriter) Dir() string {
	return w.dir
}

// WriteScript writes script to the file name and returns its path.
func (w *ScriptWriter) WriteScript(tctx *tcontext.Context, name, script string) (string, error) {
	start := time.Now()
	path := filepath.Join(w.dir, name)
	size, err := writeToFile(path, script)
	if err != nil {
		return "", NewError(ErrPersistence, path, err)
	}
	writeTimeHistogram.Observe(time.Since(start).Seconds())
	finishedSizeCounter.Add(float64(size))
	tctx.L().Info("script written",
		zap.String("path", path),
		zap.String("size", units.HumanSize(float64(size))))
	return path, nil
}

func writeToFile(path, content string) (uint64, error) {
	fileWriter, tearDown, err := buildFileWriter(path)
	if err != nil {
		return 0, err
	}
	intWriter := &InterceptStringWriter{StringWriter: fileWriter}
	err = write(intWriter, content)
	if closeErr := tearDown(); err == nil {
		err = closeErr
	}
	return intWriter.Written, withStack(err)
}
