package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AuthMode selects how S3Store obtains AWS credentials.
type AuthMode int

const (
	// AuthModeIAMRole uses the host's default credential chain
	// (instance/task role), validated at construction via the metadata
	// endpoint.
	AuthModeIAMRole AuthMode = iota
	// AuthModeStatic uses fixed access-key credentials, for local/dev.
	AuthModeStatic
)

// Config configures one S3Store instance, scoped to a single logical
// cache.
type Config struct {
	// BucketPrefix and CacheName compose the bucket name:
	// "{prefix}-{cache}-[{suffix}]", with underscores in CacheName
	// normalized to hyphens.
	BucketPrefix string
	CacheName    string
	BucketSuffix string // optional

	Region   string
	Endpoint string // optional custom endpoint (MinIO, LocalStack)

	Auth            AuthMode
	StaticAccessKey string
	StaticSecretKey string

	// KeyTransform defaults to PassthroughTransform if nil.
	KeyTransform KeyTransform
	// TestPrefix, if set, is prepended to every key so parallel test
	// runs can share a bucket without collision.
	TestPrefix string
}

// S3Store implements Store against an S3-compatible bucket, applying
// the persistence layer's key-transform and distribution-prefix
// conventions before every call.
type S3Store struct {
	client     *s3.Client
	bucket     string
	transform  KeyTransform
	testPrefix string
}

// NewS3Store constructs an S3Store. In AuthModeIAMRole, construction
// validates that the instance metadata endpoint is reachable — a
// misconfigured IAM role fails fast here rather than on the first
// request.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	var awsCfg aws.Config
	var err error

	switch cfg.Auth {
	case AuthModeStatic:
		if cfg.StaticAccessKey == "" || cfg.StaticSecretKey == "" {
			return nil, &Error{Kind: KindConfiguration, Op: "new", Key: "", Source: errors.New("static auth requires access and secret keys")}
		}
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.StaticAccessKey, cfg.StaticSecretKey, "")),
		)
	default:
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err == nil {
			err = validateIAMRole(ctx)
		}
	}
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "new", Key: "", Source: err}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	transform := cfg.KeyTransform
	if transform == nil {
		transform = PassthroughTransform{}
	}

	return &S3Store{
		client:     client,
		bucket:     bucketName(cfg.BucketPrefix, cfg.CacheName, cfg.BucketSuffix),
		transform:  transform,
		testPrefix: cfg.TestPrefix,
	}, nil
}

// validateIAMRole confirms the host's instance-metadata endpoint is
// reachable, so a missing/unreachable IAM role surfaces as a
// Configuration error at construction rather than on first use.
func validateIAMRole(ctx context.Context) error {
	client := imds.New(imds.Options{})
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := client.GetRegion(checkCtx, &imds.GetRegionInput{})
	if err != nil {
		return fmt.Errorf("iam role validation: instance metadata endpoint unreachable: %w", err)
	}
	return nil
}

func (s *S3Store) key(key string) string {
	return objectKey(s.transform, s.testPrefix, key)
}

func (s *S3Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return classify("put", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		wrapped := classify("get", key, err)
		if wrapped.Kind == KindNotFound {
			return nil, false, nil
		}
		return nil, false, wrapped
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, classify("get", key, err)
	}
	return data, true, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return classify("delete", key, err)
	}
	return nil
}
