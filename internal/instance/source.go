package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pierrec/lz4/v4"
)

// DefaultS3Endpoint is used for s3:// locations when no endpoint is configured.
const DefaultS3Endpoint = "s3.amazonaws.com"

// Loader opens instance locations: local paths or s3://bucket/key objects,
// optionally compressed (.gz, .zst or .lz4, decided by extension).
type Loader struct {
	// S3Endpoint is the host[:port] of the S3-compatible service.
	S3Endpoint string
	// S3Insecure disables TLS towards S3Endpoint.
	S3Insecure bool
}

// LoaderFromEnv configures a Loader from PDD_S3_ENDPOINT and PDD_S3_INSECURE.
// Credentials come from the usual AWS_* or MINIO_* variables.
func LoaderFromEnv() *Loader {
	l := &Loader{S3Endpoint: os.Getenv("PDD_S3_ENDPOINT")}
	switch strings.ToLower(os.Getenv("PDD_S3_INSECURE")) {
	case "1", "true", "yes":
		l.S3Insecure = true
	}
	return l
}

// Load opens location and parses it.
func (l *Loader) Load(ctx context.Context, location string, decimals int) (*Data, error) {
	rc, err := l.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	d, err := Parse(rc, decimals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return d, nil
}

// Open returns the decompressed content of location.
func (l *Loader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	var (
		raw io.ReadCloser
		err error
	)
	if bucket, key, ok := parseS3(location); ok {
		raw, err = l.openS3(ctx, bucket, key)
	} else {
		raw, err = os.Open(location)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	rc, err := decompress(raw, path.Ext(location))
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return rc, nil
}

func parseS3(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func (l *Loader) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	endpoint := l.S3Endpoint
	if endpoint == "" {
		endpoint = DefaultS3Endpoint
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
		}),
		Secure: !l.S3Insecure,
	})
	if err != nil {
		return nil, err
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing object here rather than on
	// the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// readCloser closes the decompressor and then the underlying source.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func decompress(raw io.ReadCloser, ext string) (io.ReadCloser, error) {
	switch strings.ToLower(ext) {
	case ".gz":
		zr, err := gzip.NewReader(raw)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close, raw.Close}}, nil
	case ".zst":
		dec, err := zstd.NewReader(raw)
		if err != nil {
			return nil, err
		}
		return &readCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			raw.Close,
		}}, nil
	case ".lz4":
		return &readCloser{Reader: lz4.NewReader(raw), closers: []func() error{raw.Close}}, nil
	}
	return raw, nil
}
