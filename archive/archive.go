// CLAUDE:SUMMARY Optional S3 archive of downloaded transcripts (aws-sdk-go-v2, mimetype-sniffed content type).
// Package archive copies each newly downloaded transcript to an S3 bucket.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

// PutObjectAPI is the slice of the S3 client the archiver uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config configures the S3 archiver.
type Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the S3 endpoint (MinIO, localstack). Implies
	// path-style addressing.
	Endpoint string
	Logger   *slog.Logger
}

// S3 uploads transcripts under <Prefix>/<file name>.
type S3 struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

// New loads the default AWS configuration chain and builds the archiver.
func New(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return NewWithClient(s3.NewFromConfig(awsCfg, opts...), cfg), nil
}

// NewWithClient builds the archiver around an existing client.
func NewWithClient(client PutObjectAPI, cfg Config) *S3 {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: cfg.Logger,
	}
}

// Key returns the object key for a local transcript path.
func (a *S3) Key(localPath string) string {
	name := filepath.Base(localPath)
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

// Put uploads the file at localPath and returns its object key.
func (a *S3) Put(ctx context.Context, localPath string) (string, error) {
	mt, err := mimetype.DetectFile(localPath)
	if err != nil {
		return "", fmt.Errorf("archive: detect %s: %w", localPath, err)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("archive: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := a.Key(localPath)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		return "", fmt.Errorf("archive: put s3://%s/%s: %w", a.bucket, key, err)
	}
	a.logger.Info("archive: stored", "bucket", a.bucket, "key", key, "content_type", mt.String())
	return key, nil
}
