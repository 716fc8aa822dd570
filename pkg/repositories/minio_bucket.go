package repositories

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
)

// S3Config holds connection settings for an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioBucket is a Bucket backed by an S3-compatible service.
type MinioBucket struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

// NewMinioBucket creates a client for cfg.Bucket. No request is made until
// the bucket is first used.
func NewMinioBucket(cfg S3Config) (*MinioBucket, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &MinioBucket{client: client, bucketName: bucket, region: region}, nil
}

var _ Bucket = (*MinioBucket)(nil)

// Ensure creates the bucket on first use.
func (b *MinioBucket) Ensure(ctx context.Context) error {
	b.initOnce.Do(func() {
		exists, err := b.client.BucketExists(ctx, b.bucketName)
		if err != nil {
			b.initErr = err
			return
		}
		if !exists {
			b.initErr = b.client.MakeBucket(ctx, b.bucketName, minio.MakeBucketOptions{Region: b.region})
		}
	})
	return b.initErr
}

func (b *MinioBucket) Put(ctx context.Context, key string, data []byte) error {
	if err := b.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := b.client.PutObject(ctx, b.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (b *MinioBucket) Get(ctx context.Context, key string) ([]byte, error) {
	if err := b.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := b.client.GetObject(ctx, b.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *MinioBucket) Delete(ctx context.Context, key string) error {
	if err := b.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	return b.client.RemoveObject(ctx, b.bucketName, key, minio.RemoveObjectOptions{})
}

func (b *MinioBucket) List(ctx context.Context, prefix string) ([]string, error) {
	if err := b.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	keys := make([]string, 0, 32)
	for obj := range b.client.ListObjects(ctx, b.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key != "" {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
