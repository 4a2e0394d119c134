// Package storage loads input documents from and saves output documents to
// the local filesystem, standard streams or S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Stdio is the location naming stdin for reads and stdout for writes.
const Stdio = "-"

// Storage reads and writes whole objects. Documents are materialized in
// memory, so objects are moved as byte slices.
type Storage interface {
	// ReadFile reads the object at key.
	ReadFile(ctx context.Context, key string) ([]byte, error)

	// WriteFile replaces the object at key.
	WriteFile(ctx context.Context, key string, data []byte) error

	// Exists reports whether key names an object.
	Exists(ctx context.Context, key string) (bool, error)

	// Location renders key the way a user would type it.
	Location(key string) string
}

// LocalStorage implements Storage for the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage roots keys at basePath. An empty basePath leaves keys
// relative to the working directory.
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) path(key string) string {
	if s.basePath == "" || filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.basePath, key)
}

func (s *LocalStorage) ReadFile(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}

func (s *LocalStorage) WriteFile(_ context.Context, key string, data []byte) error {
	full := s.path(key)
	if dir := filepath.Dir(full); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(full, data, 0644)
}

func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStorage) Location(key string) string {
	return s.path(key)
}

// S3Storage implements Storage for one S3 bucket
type S3Storage struct {
	bucket     string
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// NewS3Storage builds a client from the default AWS configuration chain
// (environment, shared config, instance role).
func NewS3Storage(ctx context.Context, bucket string) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StorageFromClient(s3.NewFromConfig(cfg), bucket), nil
}

// NewS3StorageFromClient wraps an existing client.
func NewS3StorageFromClient(client *s3.Client, bucket string) *S3Storage {
	return &S3Storage{
		bucket:     bucket,
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}
}

func (s *S3Storage) ReadFile(ctx context.Context, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", s.Location(key), err)
	}
	return buf.Bytes(), nil
}

func (s *S3Storage) WriteFile(ctx context.Context, key string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to %s: %w", s.Location(key), err)
	}
	return nil
}

func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, err
}

func (s *S3Storage) Location(key string) string {
	return "s3://" + s.bucket + "/" + key
}

// ParseS3URI splits s3://bucket/key. The key must be non-empty.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", fmt.Errorf("invalid S3 path: %s (must start with s3://)", uri)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 path: %s (missing bucket)", uri)
	}
	if key == "" {
		return "", "", fmt.Errorf("invalid S3 path: %s (missing key)", uri)
	}
	return bucket, key, nil
}

// Resolve picks the backend for a location and returns the key within it.
func Resolve(ctx context.Context, location string) (Storage, string, error) {
	if strings.HasPrefix(location, "s3://") {
		bucket, key, err := ParseS3URI(location)
		if err != nil {
			return nil, "", err
		}
		st, err := NewS3Storage(ctx, bucket)
		if err != nil {
			return nil, "", err
		}
		return st, key, nil
	}
	return NewLocalStorage(""), location, nil
}

// Streams holds the standard streams used for the Stdio location.
type Streams struct {
	In  io.Reader
	Out io.Writer
}

// Std returns the process's stdin and stdout.
func Std() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout}
}

// Load reads a whole input from a local path, s3://bucket/key or Stdio.
func (st Streams) Load(ctx context.Context, location string) ([]byte, error) {
	if location == Stdio {
		data, err := io.ReadAll(st.In)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	backend, key, err := Resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	data, err := backend.ReadFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return data, nil
}

// Save writes data to a local path, s3://bucket/key or Stdio.
func (st Streams) Save(ctx context.Context, location string, data []byte) error {
	if location == Stdio || location == "" {
		if _, err := st.Out.Write(data); err != nil {
			return fmt.Errorf("failed to write stdout: %w", err)
		}
		return nil
	}
	backend, key, err := Resolve(ctx, location)
	if err != nil {
		return err
	}
	if err := backend.WriteFile(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", location, err)
	}
	return nil
}

// Load reads from the process's standard streams or a named location.
func Load(ctx context.Context, location string) ([]byte, error) {
	return Std().Load(ctx, location)
}

// Save writes to the process's standard streams or a named location.
func Save(ctx context.Context, location string, data []byte) error {
	return Std().Save(ctx, location, data)
}
