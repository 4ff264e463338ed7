// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinels for every failure class of an export or import run. Use them
// with errors.Is against any error returned by this module.
var (
	// ErrConfiguration means required options are missing or invalid.
	ErrConfiguration = errors.New("configuration error")
	// ErrCatalog means the schema objects could not be enumerated.
	ErrCatalog = errors.New("catalog error")
	// ErrObjectExtraction means the DDL or data of one object could not be read.
	ErrObjectExtraction = errors.New("object extraction error")
	// ErrPersistence means the script, manifest or archive could not be written.
	ErrPersistence = errors.New("persistence error")
	// ErrImportParse means the supplied script has malformed chunk markers.
	ErrImportParse = errors.New("import parse error")
	// ErrImportBatch means the replay batch failed.
	ErrImportBatch = errors.New("import batch error")
)

// Error is an error of a known kind, optionally bound to one schema object.
type Error struct {
	Kind   error
	Object string
	Err    error
}

// NewError wraps err as an error of kind kind.
func NewError(kind error, object string, err error) *Error {
	return &Error{Kind: kind, Object: object, Err: withStack(err)}
}

func (e *Error) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Object, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func withStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(stackTracer); ok {
		return err
	}
	return errors.WithStack(err)
}
