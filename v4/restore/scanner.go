// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package restore

import (
	"strings"

	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/pkg/errors"
)

// Chunk is one marker delimited unit of a script.
type Chunk struct {
	// Label is the marker text, e.g. "table dump : users".
	Label string
	// Body is the trimmed text between the markers.
	Body string
	// Line is the 1-based line of the start marker.
	Line int
}

// ChunkScanner yields the chunks of a script in document order. It scans
// forward only; a malformed marker stops the scan and is reported by Err.
type ChunkScanner struct {
	text string
	pos  int
	line int

	chunk Chunk
	err   error
}

// NewChunkScanner returns a scanner positioned at the start of script.
func NewChunkScanner(script string) *ChunkScanner {
	return &ChunkScanner{text: script}
}

// Scan advances to the next chunk. It returns false at the end of the
// script or on a malformed marker.
func (s *ChunkScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	var (
		open      bool
		bodyStart int
	)
	for s.pos < len(s.text) {
		lineStart := s.pos
		line := s.nextLine()

		if label, ok := markerLabel(line, export.StartMarker); ok {
			if open {
				return s.fail(errors.Errorf("line %d: start marker %q inside open chunk %q started at line %d",
					s.line, label, s.chunk.Label, s.chunk.Line))
			}
			open = true
			bodyStart = s.pos
			s.chunk = Chunk{Label: label, Line: s.line}
			continue
		}
		if label, ok := markerLabel(line, export.EndMarker); ok {
			if !open {
				return s.fail(errors.Errorf("line %d: end marker %q without start marker", s.line, label))
			}
			if label != s.chunk.Label {
				return s.fail(errors.Errorf("line %d: end marker %q does not match start marker %q at line %d",
					s.line, label, s.chunk.Label, s.chunk.Line))
			}
			s.chunk.Body = strings.TrimSpace(s.text[bodyStart:lineStart])
			return true
		}
	}
	if open {
		return s.fail(errors.Errorf("start marker %q at line %d has no end marker", s.chunk.Label, s.chunk.Line))
	}
	return false
}

// Chunk returns the chunk found by the last successful Scan.
func (s *ChunkScanner) Chunk() Chunk {
	return s.chunk
}

// Err returns the first marker error met by Scan.
func (s *ChunkScanner) Err() error {
	return s.err
}

func (s *ChunkScanner) fail(err error) bool {
	s.err = export.NewError(export.ErrImportParse, "", err)
	s.chunk = Chunk{}
	return false
}

// nextLine consumes one line and returns it without its line terminator.
func (s *ChunkScanner) nextLine() string {
	s.line++
	rest := s.text[s.pos:]
	idx := strings.IndexByte(rest, '\n')
	if idx < 0 {
		s.pos = len(s.text)
		return strings.TrimSuffix(rest, "\r")
	}
	s.pos += idx + 1
	return strings.TrimSuffix(rest[:idx], "\r")
}

// markerLabel reports whether line is marker, alone or followed by a space,
// and returns the text after it.
func markerLabel(line, marker string) (string, bool) {
	if !strings.HasPrefix(line, marker) {
		return "", false
	}
	rest := line[len(marker):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// ParseChunks scans the whole script and returns its chunks.
func ParseChunks(script string) ([]Chunk, error) {
	var chunks []Chunk
	scanner := NewChunkScanner(script)
	for scanner.Scan() {
		chunks = append(chunks, scanner.Chunk())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}
