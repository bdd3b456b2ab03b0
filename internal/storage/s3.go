package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Backend is the S3-compatible MetaRequester and StorageProxy
// implementation: objects live at key "<repo>/objects/<oid>" in a single
// configured bucket, accessed through the internal-region client.
// Grounded on the teacher's lfs.go createS3Client/HeadObject calls and
// the Rust MinioSingleBucketStorage's object key layout.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend builds an S3Backend against an already-constructed client
// and bucket name.
func NewS3Backend(client *s3.Client, bucket string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket}
}

func objectKey(repo, oid string) string {
	return fmt.Sprintf("%s/objects/%s", repo, oid)
}

// GetMetaResult issues a HEAD on the object key. A missing object, a
// request error, or a non-positive/absent content-length all map to
// not-found (spec.md §4.3).
func (b *S3Backend) GetMetaResult(ctx context.Context, repo, oid string) (MetaResult, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey(repo, oid)),
	})
	if err != nil {
		return MetaResult{Repo: repo, Oid: oid}, nil
	}
	if out.ContentLength == nil || *out.ContentLength <= 0 {
		return MetaResult{Repo: repo, Oid: oid}, nil
	}
	return MetaResult{Repo: repo, Oid: oid, Exists: true, Size: uint64(*out.ContentLength)}, nil
}

// Get implements storage.Proxy against the bucket.
func (b *S3Backend) Get(ctx context.Context, repo, oid string) ([]byte, string, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey(repo, oid)),
	})
	if err != nil {
		return nil, "", ErrNotFound
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read object body: %w", err)
	}
	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return data, contentType, nil
}

// Post implements storage.Proxy against the bucket, storing body with
// its declared content-type header.
func (b *S3Backend) Post(ctx context.Context, repo, oid string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectKey(repo, oid)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}
