package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/config"
)

type fakeS3 struct {
	puts      []*s3.PutObjectInput
	bodies    [][]byte
	putErr    error
	headErr   error
	createErr error
	created   bool
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = true
	return &s3.CreateBucketOutput{}, f.createErr
}

func TestNewS3PayloadArchive_Validation(t *testing.T) {
	_, err := NewS3PayloadArchive(context.Background(), nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3PayloadArchive(context.Background(), &config.StorageConfig{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket is required")

	archive, err := NewS3PayloadArchive(context.Background(), &config.StorageConfig{
		Bucket: "payloads", Region: "us-east-1", AccessKeyID: "k", SecretAccessKey: "s",
		Endpoint: "http://localhost:9000", UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "payloads", archive.Bucket())
}

func TestS3PayloadArchive_Archive(t *testing.T) {
	fake := &fakeS3{}
	archive := newS3PayloadArchive(fake, "payloads")
	userID := uuid.MustParse("7b1c2a5e-8f1d-4c1e-9a4b-2f1d8e7c6b5a")
	fetchedAt := time.Date(2026, 3, 4, 5, 6, 7, 8, time.FixedZone("TRT", 3*3600))

	key, err := archive.Archive(context.Background(), userID, integration.MarketplaceTrendyol, fetchedAt,
		[]integration.RawOrder{{"orderNumber": "1001"}, {"orderNumber": "1002"}})
	require.NoError(t, err)

	assert.Equal(t, "raw/7b1c2a5e-8f1d-4c1e-9a4b-2f1d8e7c6b5a/TRENDYOL/20260304T020607.000000008Z.json", key)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "payloads", *fake.puts[0].Bucket)
	assert.Equal(t, "application/json", *fake.puts[0].ContentType)
	assert.Equal(t, "2", fake.puts[0].Metadata["orders"])

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(fake.bodies[0], &decoded))
	assert.Len(t, decoded, 2)
}

func TestS3PayloadArchive_ArchiveError(t *testing.T) {
	archive := newS3PayloadArchive(&fakeS3{putErr: errors.New("access denied")}, "payloads", WithKeyPrefix("/snapshots/"))
	assert.Equal(t, "snapshots", archive.prefix)

	_, err := archive.Archive(context.Background(), uuid.New(), integration.MarketplaceVeeqo, time.Now(), nil)
	assert.ErrorContains(t, err, "access denied")
}

func TestS3PayloadArchive_EnsureBucket(t *testing.T) {
	t.Run("existing bucket", func(t *testing.T) {
		fake := &fakeS3{}
		require.NoError(t, newS3PayloadArchive(fake, "b").EnsureBucket(context.Background()))
		assert.False(t, fake.created)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		fake := &fakeS3{headErr: &types.NotFound{}}
		require.NoError(t, newS3PayloadArchive(fake, "b").EnsureBucket(context.Background()))
		assert.True(t, fake.created)
	})

	t.Run("other head errors are returned", func(t *testing.T) {
		fake := &fakeS3{headErr: errors.New("forbidden")}
		assert.Error(t, newS3PayloadArchive(fake, "b").EnsureBucket(context.Background()))
	})
}

func TestS3PayloadArchive_AgainstS3CompatibleServer(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	archive, err := NewS3PayloadArchive(context.Background(), &config.StorageConfig{
		Bucket: "payloads", Region: "us-east-1", AccessKeyID: "k", SecretAccessKey: "s",
		Endpoint: server.URL, UsePathStyle: true,
	})
	require.NoError(t, err)

	key, err := archive.Archive(context.Background(), uuid.New(), integration.MarketplaceShippo, time.Now(),
		[]integration.RawOrder{{"object_id": "abc"}})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/payloads/"+key, path)
	assert.True(t, strings.Contains(body, `"object_id":"abc"`))
}
