// Package s3source loads PRSA CSV files from an S3-compatible bucket.
package s3source

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/couchcryptid/air-quality-forecast/internal/adapter/csvdir"
	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configure the bucket connection.
type Options struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Source lists every *.csv object under the prefix and parses it.
type Source struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewSource creates a minio client for opts.
func NewSource(opts Options, logger *slog.Logger) (*Source, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &Source{client: client, bucket: opts.Bucket, prefix: opts.Prefix, logger: logger}, nil
}

// Keys lists the CSV object keys under the prefix in lexical order.
func (s *Source) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("s3 list %s/%s: %w", s.bucket, s.prefix, obj.Err)
		}
		if isCSV(obj.Key) {
			keys = append(keys, obj.Key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Load downloads and parses every CSV object. No objects is ErrNoDataFound.
func (s *Source) Load(ctx context.Context) ([]domain.Observation, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no csv objects in s3://%s/%s", domain.ErrNoDataFound, s.bucket, s.prefix)
	}

	var all []domain.Observation
	for _, key := range keys {
		rows, err := s.loadObject(ctx, key)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("s3 object loaded", "key", key, "rows", len(rows))
		all = append(all, rows...)
	}
	return all, nil
}

func (s *Source) loadObject(ctx context.Context, key string) ([]domain.Observation, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get object %s: %w", key, err)
	}
	defer obj.Close()
	return csvdir.Parse(obj, "s3://"+s.bucket+"/"+key)
}

func (s *Source) String() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

func isCSV(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), ".csv")
}
