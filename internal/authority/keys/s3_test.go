package keys

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func stubAWS(t *testing.T, putter ObjectPutter, loadErr error) *s3.Options {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "eu-central-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, loadErr
	}

	opts := &s3.Options{}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectPutter {
		for _, fn := range optFns {
			fn(opts)
		}
		return putter
	}
	return opts
}

func TestS3Publisher_Publish(t *testing.T) {
	putter := &fakePutter{}
	opts := stubAWS(t, putter, nil)

	pub, err := NewS3Publisher(context.Background(), S3Config{
		Region:       "eu-central-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Bucket:       "shopauth",
	})
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	p, _ := newTestProvider(t, time.Hour)
	require.NoError(t, pub.Publish(context.Background(), p.JWKS()))

	require.NotNil(t, putter.in)
	assert.Equal(t, "shopauth", aws.ToString(putter.in.Bucket))
	assert.Equal(t, ".well-known/jwks.json", aws.ToString(putter.in.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.in.ContentType))

	body, err := io.ReadAll(putter.in.Body)
	require.NoError(t, err)
	var set jose.JSONWebKeySet
	require.NoError(t, json.Unmarshal(body, &set))
	kid, _ := p.Current()
	assert.Len(t, set.Key(kid), 1)
}

func TestS3Publisher_Errors(t *testing.T) {
	stubAWS(t, &fakePutter{}, errors.New("load-fail"))
	_, err := NewS3Publisher(context.Background(), S3Config{Region: "eu-central-1"})
	assert.EqualError(t, err, "load-fail")

	putter := &fakePutter{err: errors.New("denied")}
	stubAWS(t, putter, nil)
	pub, err := NewS3Publisher(context.Background(), S3Config{Region: "eu-central-1", Bucket: "b"})
	require.NoError(t, err)
	err = pub.Publish(context.Background(), jose.JSONWebKeySet{})
	assert.ErrorContains(t, err, "denied")
}
