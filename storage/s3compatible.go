package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/blobtools/blobcopy/copyverify"
)

// S3CompatibleBackend talks to any S3-compatible endpoint (MinIO, Ceph,
// cloud object stores with S3 gateways) using static credentials. This is
// the backend used when the caller supplies an account name, account key
// and container directly.
type S3CompatibleBackend struct {
	Client   *minio.Client
	Endpoint string
	Bucket   string
	UseTLS   bool
}

func NewS3CompatibleBackend(
	endpoint string,
	accessKeyID string,
	secretAccessKey string,
	bucket string,
	useTLS bool,
	debug bool,
) (*S3CompatibleBackend, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing client for %s: %w", endpoint, err)
	}
	if debug {
		client.TraceOn(os.Stderr)
	}
	return &S3CompatibleBackend{
		Client:   client,
		Endpoint: endpoint,
		Bucket:   bucket,
		UseTLS:   useTLS,
	}, nil
}

func (b *S3CompatibleBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.Client.StatObject(ctx, b.Bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) && minioErr.StatusCode == 404 {
		return false, nil
	}
	return false, fmt.Errorf("statting object %s: %w", key, err)
}

func (b *S3CompatibleBackend) Stat(ctx context.Context, key string) (copyverify.ObjectInfo, error) {
	info, err := b.Client.StatObject(ctx, b.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var minioErr minio.ErrorResponse
		if errors.As(err, &minioErr) && minioErr.StatusCode == 404 {
			return copyverify.ObjectInfo{}, fmt.Errorf("statting object %s: %w", key, copyverify.ErrNotFound)
		}
		return copyverify.ObjectInfo{}, fmt.Errorf("statting object %s: %w", key, err)
	}
	return copyverify.ObjectInfo{Size: info.Size}, nil
}

func (b *S3CompatibleBackend) Copy(ctx context.Context, sourceKey, destKey string) error {
	src := minio.CopySrcOptions{
		Bucket: b.Bucket,
		Object: sourceKey,
	}
	dst := minio.CopyDestOptions{
		Bucket: b.Bucket,
		Object: destKey,
	}
	if _, err := b.Client.CopyObject(ctx, dst, src); err != nil {
		return fmt.Errorf("copying object %s to %s: %w", sourceKey, destKey, err)
	}
	return nil
}

func (b *S3CompatibleBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.Client.GetObject(ctx, b.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}
	return obj, nil
}

func (b *S3CompatibleBackend) Validate() []string {
	var errs []string
	if b.Client == nil {
		errs = append(errs, "Client must not be nil")
	}
	if b.Bucket == "" {
		errs = append(errs, "Bucket must not be empty")
	}
	return errs
}
