// Package storage provides the object store backends the verifier can run
// against: AWS S3, any S3-compatible endpoint with static credentials, and
// a local filesystem root for development.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/blobtools/blobcopy/copyverify"
)

type S3Backend struct {
	Client S3Client
	Region string
	Bucket string
}

type S3Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func DefaultS3ClientFactory(cfg aws.Config, optFn func(*s3.Options)) S3Client {
	return s3.NewFromConfig(cfg, optFn)
}

func NewS3Backend(
	region string,
	bucket string,
	clientFactory func(aws.Config, func(*s3.Options)) S3Client,
) (*S3Backend, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := clientFactory(awsCfg, func(o *s3.Options) {
		o.Region = region
	})
	return &S3Backend{
		Client: client,
		Region: region,
		Bucket: bucket,
	}, nil
}

func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &b.Bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("heading object %s: %w", key, err)
	}
	return true, nil
}

func (b *S3Backend) Stat(ctx context.Context, key string) (copyverify.ObjectInfo, error) {
	out, err := b.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &b.Bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return copyverify.ObjectInfo{}, fmt.Errorf("heading object %s: %w", key, copyverify.ErrNotFound)
		}
		return copyverify.ObjectInfo{}, fmt.Errorf("heading object %s: %w", key, err)
	}
	return copyverify.ObjectInfo{Size: aws.ToInt64(out.ContentLength)}, nil
}

func (b *S3Backend) Copy(ctx context.Context, sourceKey, destKey string) error {
	copySource := b.Bucket + "/" + url.PathEscape(sourceKey)
	_, err := b.Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &b.Bucket,
		Key:        &destKey,
		CopySource: &copySource,
	})
	if err != nil {
		return fmt.Errorf("copying object %s to %s: %w", sourceKey, destKey, err)
	}
	return nil
}

func (b *S3Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.Bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}
	return out.Body, nil
}

func (b *S3Backend) Validate() []string {
	var errs []string
	if b.Region == "" {
		errs = append(errs, "Region must not be empty")
	}
	if b.Bucket == "" {
		errs = append(errs, "Bucket must not be empty")
	}
	return errs
}
