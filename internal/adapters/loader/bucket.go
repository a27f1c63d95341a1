package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/0xcro3dile/medrag-go/internal/domain/entities"
	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
)

// BucketConfig locates PDFs in an S3-compatible bucket.
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

// BucketSource loads every PDF under a bucket prefix.
type BucketSource struct {
	client *minio.Client
	bucket string
	prefix string
	parser ports.DocumentParser
	logger *slog.Logger
}

// NewBucketSource creates a minio client for cfg. No request is made until Load.
func NewBucketSource(cfg BucketConfig, parser ports.DocumentParser, logger *slog.Logger) (*BucketSource, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket source: bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client for %s: %w", cfg.Endpoint, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BucketSource{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		parser: parser,
		logger: logger.With(slog.String("component", "loader"), slog.String("bucket", cfg.Bucket)),
	}, nil
}

// Load lists the prefix recursively and parses every .pdf object in key order.
func (s *BucketSource) Load(ctx context.Context) ([]entities.Document, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			s.logger.Error("error listing objects", slog.String("prefix", s.prefix), slog.Any("error", obj.Err))
			return nil, fmt.Errorf("listing %s/%s: %w", s.bucket, s.prefix, obj.Err)
		}
		if strings.EqualFold(path.Ext(obj.Key), ".pdf") {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)

	var docs []entities.Document
	for _, key := range keys {
		pages, err := s.loadObject(ctx, key)
		if err != nil {
			s.logger.Warn("skipping object", slog.String("key", key), slog.Any("error", err))
			continue
		}
		s.logger.Info("loaded object", slog.String("key", key), slog.Int("pages", len(pages)))
		docs = append(docs, pages...)
	}
	return docs, nil
}

func (s *BucketSource) loadObject(ctx context.Context, key string) ([]entities.Document, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("downloading: %w", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	return pagesToDocuments(ctx, s.parser, data, s.bucket+"/"+key, info.LastModified)
}
