package storage

import (
	"context"
	"time"
)

// ObjectStore is the blob storage consumed by the pipeline. Buckets and
// keys are opaque strings; key naming lives in keys.go.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Copy(ctx context.Context, srcBucket, srcKey, destBucket, destKey string) error
	Delete(ctx context.Context, bucket, key string) error
	// Presign issues a time-limited download URL for an existing object.
	Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	// PresignUpload issues a time-limited upload URL for a new object.
	PresignUpload(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
