// Copyright 2021 PingCAP, Inc. Licensed under Apache-2.0.

package context

import (
	"context"

	"go.uber.org/zap"

	"github.com/mysqlbackup4go/backup4go/v4/log"
)

// Context carries the go context of an export or import run together with
// its logger and run id.
type Context struct {
	context.Context
	logger *zap.Logger
	runID  string
}

// Background return a context logging to the global logger
func Background() *Context {
	return &Context{
		Context: context.Background(),
		logger:  log.Zap(),
	}
}

// NewContext return a new Context
func NewContext(ctx context.Context, logger *zap.Logger) *Context {
	return &Context{
		Context: ctx,
		logger:  logger,
	}
}

// WithContext set go context
func (c *Context) WithContext(ctx context.Context) *Context {
	return &Context{
		Context: ctx,
		logger:  c.logger,
		runID:   c.runID,
	}
}

// WithRunID tags the context and every line of its logger with runID.
func (c *Context) WithRunID(runID string) *Context {
	return &Context{
		Context: c.Context,
		logger:  c.logger.With(zap.String("run-id", runID)),
		runID:   runID,
	}
}

// WithLogger set logger
func (c *Context) WithLogger(logger *zap.Logger) *Context {
	return &Context{
		Context: c.Context,
		logger:  logger,
		runID:   c.runID,
	}
}

// RunID returns the run id, empty outside a run.
func (c *Context) RunID() string {
	return c.runID
}

// L returns real logger
func (c *Context) L() *zap.Logger {
	return c.logger
}
