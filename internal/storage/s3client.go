package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3ClientConfig names one endpoint/region/credential tuple. The
// composer builds one for the internal (direct-access) client used by
// MetaRequester/Proxy and, optionally, a second for the public-access
// endpoint used to presign URLs a client can actually reach — mirroring
// the teacher's single createS3Client plus the Rust
// MinioSingleBucketStorage's direct-access/public-access bucket split.
type S3ClientConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Client builds an S3-compatible client against cfg, path-style
// addressed exactly as the teacher's createS3Client does. An explicit
// endpoint (minio and friends) takes a custom resolver; without one the
// named region is used as-is.
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" || region == "auto" {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	}
	if cfg.Endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			})
		opts = append(opts, config.WithEndpointResolverWithOptions(customResolver))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}
