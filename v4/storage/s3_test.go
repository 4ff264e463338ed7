// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type mockPutObject struct {
	bucket string
	key    string
	body   []byte
	err    error
}

func (m *mockPutObject) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.bucket = aws.ToString(params.Bucket)
	m.key = aws.ToString(params.Key)
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	require.Equal(t, "dump.zip", Config{}.ObjectKey("/tmp/x/dump.zip"))
	require.Equal(t, "backups/shop/dump.zip", Config{Prefix: "/backups/shop/"}.ObjectKey("dump.zip"))
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.tar.zst")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	client := &mockPutObject{}
	uploader := NewUploaderWithClient(client, Config{Bucket: "backups", Prefix: "nightly"})
	key, err := uploader.Upload(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "nightly/dump.tar.zst", key)
	require.Equal(t, "backups", client.bucket)
	require.Equal(t, key, client.key)
	require.Equal(t, []byte("payload"), client.body)
}

func TestUploadFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.zip")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	uploader := NewUploaderWithClient(&mockPutObject{err: errors.New("access denied")}, Config{Bucket: "backups"})
	_, err := uploader.Upload(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")

	_, err = uploader.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)
}

func TestNewUploader(t *testing.T) {
	uploader, err := NewUploader(context.Background(), Config{
		Bucket:    "backups",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)
	require.NotNil(t, uploader)
}
