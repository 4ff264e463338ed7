// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

// Package storage copies generated backups to S3 compatible object storage.
package storage

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/docker/go-units"
	"github.com/mysqlbackup4go/backup4go/v4/log"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config is the S3 destination of uploaded archives.
type Config struct {
	Bucket         string
	Region         string
	Prefix         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// ObjectKey returns the key under which the file at filePath is stored.
func (c Config) ObjectKey(filePath string) string {
	name := filepath.Base(filePath)
	prefix := strings.Trim(c.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// PutObjectAPI is the part of the S3 client used by the uploader.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader uploads files to one bucket.
type Uploader struct {
	client PutObjectAPI
	cfg    Config
}

// NewUploader builds an S3 client from cfg. Static credentials are used when
// an access key is configured, otherwise the default AWS credential chain.
func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	region := cfg.Region
	if region == "" {
		// custom endpoints usually ignore the region but the SDK requires one
		region = "us-east-1"
	}
	opts = append(opts, awsconfig.WithRegion(region))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle || cfg.Endpoint != ""
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewUploaderWithClient(client, cfg), nil
}

// NewUploaderWithClient returns an uploader using client.
func NewUploaderWithClient(client PutObjectAPI, cfg Config) *Uploader {
	return &Uploader{client: client, cfg: cfg}
}

// Upload stores the file at filePath and returns its object key.
func (u *Uploader) Upload(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", errors.Wrap(err, "open file for upload")
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", errors.WithStack(err)
	}

	key := u.cfg.ObjectKey(filePath)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload %s to s3://%s/%s", filePath, u.cfg.Bucket, key)
	}
	log.Info("backup uploaded",
		zap.String("bucket", u.cfg.Bucket),
		zap.String("key", key),
		zap.String("size", units.HumanSize(float64(info.Size()))))
	return key, nil
}
