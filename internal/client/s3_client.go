package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"eli-dashboard/internal/config"
	"eli-dashboard/internal/util"
)

// S3Presigner signs s3:// snapshot locations for browser redirects.
type S3Presigner struct {
	presign *s3.PresignClient
	expiry  time.Duration
}

func NewS3Presigner(ctx context.Context, cfg *config.Config) (*S3Presigner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Media.S3Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	util.Info("S3 presigner initialized",
		zap.String("region", cfg.Media.S3Region),
		zap.Duration("expiry", cfg.Media.PresignExpiry),
	)
	return &S3Presigner{
		presign: s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
		expiry:  cfg.Media.PresignExpiry,
	}, nil
}

// Presign returns a time-limited GET URL for an s3://bucket/key location.
func (p *S3Presigner) Presign(ctx context.Context, location string) (string, error) {
	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return "", err
	}
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", location, err)
	}
	return req.URL, nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 url: %q", location)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 url has no key: %q", location)
	}
	return u.Host, key, nil
}
