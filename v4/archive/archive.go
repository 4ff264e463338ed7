// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

// Package archive packages generated scripts into a single file and reads
// scripts back out of such files.
package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/mysqlbackup4go/backup4go/v4/log"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
	"go.uber.org/zap"
)

// Format is an archive format.
type Format string

// Supported formats. Zip stores the packed files directly, the stream
// formats compress a tar of them.
const (
	FormatZip  Format = "zip"
	FormatGzip Format = "gzip"
	FormatXz   Format = "xz"
	FormatZstd Format = "zstd"
)

const scriptExtension = ".sql"

// ParseFormat parses a format name. The empty string selects zip.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatZip, nil
	case FormatZip, FormatGzip, FormatXz, FormatZstd:
		return f, nil
	case "gz":
		return FormatGzip, nil
	case "zst":
		return FormatZstd, nil
	default:
		return "", errors.Errorf("unsupported archive format %q", s)
	}
}

// Extension returns the file extension of archives of format f.
func (f Format) Extension() string {
	switch f {
	case FormatGzip:
		return ".tar.gz"
	case FormatXz:
		return ".tar.xz"
	case FormatZstd:
		return ".tar.zst"
	default:
		return ".zip"
	}
}

// FormatFromPath detects the format of an archive from its file name.
func FormatFromPath(path string) (Format, bool) {
	lower := strings.ToLower(path)
	for _, f := range []Format{FormatZip, FormatGzip, FormatXz, FormatZstd} {
		if strings.HasSuffix(lower, f.Extension()) {
			return f, true
		}
	}
	return "", false
}

// Pack writes files into the archive dst. Members are stored under their
// base names.
func Pack(dst string, format Format, files ...string) (err error) {
	if len(files) == 0 {
		return errors.New("no file to pack")
	}
	if err = os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WithStack(err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = errors.WithStack(closeErr)
		}
	}()

	if format == FormatZip {
		err = packZip(out, files)
	} else {
		err = packTar(out, files, format)
	}
	if err != nil {
		return errors.WithMessagef(err, "pack %s", dst)
	}
	log.Debug("packed archive",
		zap.String("path", dst),
		zap.String("format", string(format)),
		zap.Int("files", len(files)))
	return nil
}

func packZip(w io.Writer, files []string) error {
	zw := zip.NewWriter(w)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			return errors.WithStack(err)
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return errors.WithStack(err)
		}
		header.Method = zip.Deflate
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return errors.WithStack(err)
		}
		if err = copyFile(entry, file); err != nil {
			return err
		}
	}
	return errors.WithStack(zw.Close())
}

func packTar(w io.Writer, files []string, format Format) error {
	cw, closeFn, err := compressWriter(w, format)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(cw)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			return errors.WithStack(err)
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return errors.WithStack(err)
		}
		if err = tw.WriteHeader(header); err != nil {
			return errors.WithStack(err)
		}
		if err = copyFile(tw, file); err != nil {
			return err
		}
	}
	if err = tw.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(closeFn())
}

func compressWriter(w io.Writer, format Format) (io.Writer, func() error, error) {
	switch format {
	case FormatGzip:
		gzWriter := gzip.NewWriter(w)
		return gzWriter, gzWriter.Close, nil
	case FormatXz:
		xzWriter, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create xz writer")
		}
		return xzWriter, xzWriter.Close, nil
	case FormatZstd:
		zstdWriter, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create zstd writer")
		}
		return zstdWriter, zstdWriter.Close, nil
	default:
		return nil, nil, errors.Errorf("unsupported stream format %q", format)
	}
}

func decompressReader(r io.Reader, format Format) (io.Reader, func(), error) {
	switch format {
	case FormatGzip:
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create gzip reader")
		}
		return gzReader, func() { _ = gzReader.Close() }, nil
	case FormatXz:
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create xz reader")
		}
		return xzReader, func() {}, nil
	case FormatZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create zstd reader")
		}
		return decoder, decoder.Close, nil
	default:
		return nil, nil, errors.Errorf("unsupported stream format %q", format)
	}
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return errors.WithStack(err)
}

// ReadScript returns the content of the script at path. path is either a
// plain script or an archive produced by Pack, in which case the first
// script member is returned.
func ReadScript(path string) (string, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", errors.WithStack(err)
		}
		return string(content), nil
	}
	if format == FormatZip {
		return readZipScript(path)
	}
	return readTarScript(path, format)
}

func readZipScript(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer zr.Close()
	for _, file := range zr.File {
		if !strings.HasSuffix(file.Name, scriptExtension) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", errors.WithStack(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", errors.WithStack(err)
		}
		return string(content), nil
	}
	return "", errors.Errorf("no %s member in %s", scriptExtension, path)
}

func readTarScript(path string, format Format) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()
	r, closeFn, err := decompressReader(f, format)
	if err != nil {
		return "", err
	}
	defer closeFn()

	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return "", errors.Errorf("no %s member in %s", scriptExtension, path)
		}
		if err != nil {
			return "", errors.WithStack(err)
		}
		if !strings.HasSuffix(header.Name, scriptExtension) {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return "", errors.WithStack(err)
		}
		return string(content), nil
	}
}
