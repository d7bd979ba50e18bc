package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// Gateway is a thin client over the remote object store. When the store is
// unreachable at startup the gateway stays degraded: uploads and share links
// fail, conversion itself keeps working.
type Gateway struct {
	client *minio.Client
	bucket string
	log    *logrus.Logger
}

// New connects to the object store and ensures the bucket exists. A
// connection or bucket failure is logged and produces a degraded gateway,
// never an error: store-dependent features are optional.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, secure bool, log *logrus.Logger) *Gateway {
	g := &Gateway{bucket: bucket, log: log}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		log.Errorf("Failed to create object store client: %v", err)
		return g
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		log.Errorf("Object store unreachable, uploads disabled: %v", err)
		return g
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			log.Errorf("Failed to create bucket %s, uploads disabled: %v", bucket, err)
			return g
		}
	}

	log.Infof("Connected to object store at %s, bucket %s", endpoint, bucket)
	g.client = client
	return g
}

// Available reports whether the object store can be used
func (g *Gateway) Available() bool {
	return g != nil && g.client != nil
}

// Bucket returns the configured bucket name
func (g *Gateway) Bucket() string {
	return g.bucket
}

// Upload stores the local file under the given object key
func (g *Gateway) Upload(ctx context.Context, key, localPath string) error {
	if !g.Available() {
		return fmt.Errorf("object store is not available")
	}

	_, err := g.client.FPutObject(ctx, g.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	g.log.Infof("Uploaded object %s to bucket %s", key, g.bucket)
	return nil
}

// ShareURL returns a presigned GET URL for the object, valid for expiry.
func (g *Gateway) ShareURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if !g.Available() {
		return "", fmt.Errorf("object store is not available")
	}

	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Ping verifies connectivity and credentials
func (g *Gateway) Ping(ctx context.Context) error {
	if !g.Available() {
		return fmt.Errorf("object store is not available")
	}
	if _, err := g.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("object store ping failed: %w", err)
	}
	return nil
}
