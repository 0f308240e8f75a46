package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_console/internal/config"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func fixedArchive(p objectPutter) *UploadArchive {
	a := newUploadArchive(p, "console-uploads")
	a.now = func() time.Time { return time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) }
	return a
}

func TestUploadArchive_Archive(t *testing.T) {
	p := &fakePutter{}
	a := fixedArchive(p)

	key, err := a.Archive(context.Background(), "products", 7, "up-1", "my products.csv", []byte("product_name\nWidget\n"))
	require.NoError(t, err)

	assert.Equal(t, "imports/products/7/2026/03/up-1-my_products.csv", key)
	assert.Equal(t, "console-uploads", aws.ToString(p.input.Bucket))
	assert.Equal(t, "text/csv", aws.ToString(p.input.ContentType))
	assert.Equal(t, "up-1", p.input.Metadata["upload-id"])
	assert.Equal(t, "product_name\nWidget\n", string(p.body))
}

func TestUploadArchive_KeyStripsDirectories(t *testing.T) {
	a := fixedArchive(&fakePutter{})
	assert.Equal(t, "imports/stock/1/2026/03/u-stock.xlsx", a.Key("stock", 1, "u", "../../etc/stock.xlsx"))
}

func TestUploadArchive_Error(t *testing.T) {
	a := fixedArchive(&fakePutter{err: errors.New("access denied")})

	_, err := a.Archive(context.Background(), "products", 7, "up-1", "p.csv", []byte("x"))
	assert.ErrorContains(t, err, "access denied")
}

func TestUploadArchive_DisabledWithoutBucket(t *testing.T) {
	a, err := NewUploadArchive(context.Background(), &config.S3Config{})
	require.NoError(t, err)
	assert.False(t, a.Enabled())

	key, err := a.Archive(context.Background(), "products", 7, "up-1", "p.csv", []byte("x"))
	assert.NoError(t, err)
	assert.Empty(t, key)
}
