package keys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-jose/go-jose/v4"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the part of the S3 client the publisher needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config locates the bucket object the JWKS document is mirrored to.
// Empty credentials fall back to the default AWS credential chain.
type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
	ObjectKey    string
	CacheControl string
}

// S3Publisher mirrors the published key set to object storage so resource
// services behind a CDN can fetch it without reaching the authority.
type S3Publisher struct {
	client ObjectPutter
	cfg    S3Config
}

func NewS3Publisher(ctx context.Context, cfg S3Config) (*S3Publisher, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	if cfg.ObjectKey == "" {
		cfg.ObjectKey = ".well-known/jwks.json"
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=300"
	}

	return &S3Publisher{client: client, cfg: cfg}, nil
}

// Publish uploads set as the JWKS document.
func (p *S3Publisher) Publish(ctx context.Context, set jose.JSONWebKeySet) error {
	body, err := json.Marshal(set)
	if err != nil {
		return err
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.cfg.Bucket),
		Key:          aws.String(p.cfg.ObjectKey),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String(p.cfg.CacheControl),
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", p.cfg.Bucket, p.cfg.ObjectKey, err)
	}
	return nil
}
