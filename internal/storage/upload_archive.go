package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/config"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// UploadArchive keeps a copy of every raw import file in S3 so that a
// failed import can be inspected later.
type UploadArchive struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// NewUploadArchive builds the S3 client from config. With no bucket
// configured the archive is disabled and Archive is a no-op.
func NewUploadArchive(ctx context.Context, cfg *config.S3Config) (*UploadArchive, error) {
	if cfg == nil || cfg.Bucket == "" {
		log.Warn().Msg("S3 bucket not configured - upload archiving disabled")
		return &UploadArchive{now: time.Now}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newUploadArchive(client, cfg.Bucket), nil
}

func newUploadArchive(client objectPutter, bucket string) *UploadArchive {
	return &UploadArchive{client: client, bucket: bucket, now: time.Now}
}

// Enabled reports whether files are actually archived.
func (a *UploadArchive) Enabled() bool {
	return a != nil && a.client != nil && a.bucket != ""
}

// Key returns the object key of an upload:
// imports/<kind>/<merchantID>/<yyyy>/<mm>/<uploadID>-<filename>.
func (a *UploadArchive) Key(kind string, merchantID int, uploadID, filename string) string {
	t := a.now().UTC()
	name := strings.ReplaceAll(path.Base("/"+filename), " ", "_")
	return fmt.Sprintf("imports/%s/%d/%04d/%02d/%s-%s", kind, merchantID, t.Year(), int(t.Month()), uploadID, name)
}

// Archive stores data and returns its object key. It returns "" when the
// archive is disabled.
func (a *UploadArchive) Archive(ctx context.Context, kind string, merchantID int, uploadID, filename string, data []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}

	key := a.Key(kind, merchantID, uploadID, filename)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(filename)),
		Metadata: map[string]string{
			"merchant-id": fmt.Sprint(merchantID),
			"upload-id":   uploadID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive upload %s: %w", uploadID, err)
	}

	log.Info().Str("bucket", a.bucket).Str("key", key).Int("size", len(data)).Msg("Upload archived")
	return key, nil
}

func contentType(filename string) string {
	if strings.EqualFold(path.Ext(filename), ".csv") {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
