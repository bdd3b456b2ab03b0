package signer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"lfs-gateway/internal/api"
	"lfs-gateway/internal/storage"
	"lfs-gateway/internal/token"
)

// S3 is the S3-compatible LinkSigner strategy: GET/PUT URLs presigned
// against the configured public-access region/endpoint, which may
// differ from the internal region MetaRequester uses. No Authorization
// header is attached — the object store verifies its own signature —
// and CheckLink always returns false since the proxy endpoints aren't
// mounted in this mode (spec.md §4.4).
type S3 struct {
	presign *s3.PresignClient
	bucket  string
}

// NewS3 builds an S3 link signer from a client constructed against the
// public-access endpoint/region.
func NewS3(client *s3.Client, bucket string) *S3 {
	return &S3{presign: s3.NewPresignClient(client), bucket: bucket}
}

func (s *S3) objectKey(repo, oid string) string {
	return fmt.Sprintf("%s/objects/%s", repo, oid)
}

// GetPresignedLink presigns a 1-hour GET.
func (s *S3) GetPresignedLink(ctx context.Context, meta storage.MetaResult) (api.ObjectAction, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(meta.Repo, meta.Oid)),
	}, func(o *s3.PresignOptions) { o.Expires = time.Hour })
	if err != nil {
		return api.ObjectAction{}, fmt.Errorf("presign get: %w", err)
	}
	return api.ObjectAction{Href: req.URL, ExpiresIn: 3600}, nil
}

// PostPresignedLink presigns a 1-hour PUT. No verify action.
func (s *S3) PostPresignedLink(ctx context.Context, meta storage.MetaResult, size uint32) (api.ObjectAction, *api.ObjectAction, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(meta.Repo, meta.Oid)),
	}, func(o *s3.PresignOptions) { o.Expires = time.Hour })
	if err != nil {
		return api.ObjectAction{}, nil, fmt.Errorf("presign put: %w", err)
	}
	return api.ObjectAction{Href: req.URL, ExpiresIn: 3600}, nil, nil
}

// CheckLink always returns false: the object store's own presigned-URL
// signature is the only authorization check in this mode.
func (s *S3) CheckLink(repo, oid string, header http.Header, op token.Operation) bool {
	return false
}
