package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/custodia-project/custodia/internal/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in, optFns...)
	}
)

// S3Config configures the S3-compatible backend (MinIO in development).
type S3Config struct {
	RootUser      string
	RootPassword  string
	Bucket        string
	Region        string
	BaseEndpoint  string
	CredentialTTL time.Duration
}

type S3Gateway struct {
	cfg S3Config
	now func() time.Time
}

func NewS3Gateway(cfg S3Config) *S3Gateway {
	if cfg.CredentialTTL <= 0 {
		cfg.CredentialTTL = 15 * time.Minute
	}
	return &S3Gateway{cfg: cfg, now: time.Now}
}

func (g *S3Gateway) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(g.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			g.cfg.RootUser,
			g.cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(g.cfg.BaseEndpoint)
	}), nil
}

func (g *S3Gateway) IssueWriteCredential(ctx context.Context, key string) (*WriteCredential, error) {

	client, err := g.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 config: %v", common.ErrTransientStorage, err)
	}

	bucket := g.cfg.Bucket

	req, err := presignPutObject(newS3PresignClient(client), ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(g.cfg.CredentialTTL))
	if err != nil {
		return nil, fmt.Errorf("%w: presign put: %v", common.ErrTransientStorage, err)
	}

	return &WriteCredential{
		Key:       key,
		URL:       req.URL,
		ExpiresAt: g.now().Add(g.cfg.CredentialTTL),
	}, nil
}

func (g *S3Gateway) ReadBytes(ctx context.Context, key string) ([]byte, error) {

	client, err := g.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 config: %v", common.ErrTransientStorage, err)
	}

	bucket := g.cfg.Bucket

	out, err := getObject(client, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrTransientStorage, key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrTransientStorage, key, err)
	}

	return b, nil
}
