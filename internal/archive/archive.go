package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/booking-sync/backend/internal/storage/models"
)

const contentType = "text/calendar"

// Archive writes feed bodies to a bucket. A nil *Archive discards everything,
// so callers never need to check whether archiving is enabled.
type Archive struct {
	client Client
	bucket string
	log    *zap.Logger
}

// New creates an archive writing to bucket.
func New(client Client, bucket string, log *zap.Logger) *Archive {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archive{client: client, bucket: bucket, log: log}
}

// FromConfig builds an archive from config, or returns nil when disabled.
func FromConfig(ctx context.Context, cfg Config, log *zap.Logger) (*Archive, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	a := New(client, cfg.Bucket, log)
	if err := a.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	if a == nil {
		return nil
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", a.bucket, err)
	}
	a.log.Info("archive bucket created", zap.String("bucket", a.bucket))
	return nil
}

// FeedKey is the object name for a reconciled feed body.
func FeedKey(pair models.PairKey, fingerprint string) string {
	return fmt.Sprintf("feeds/%s/%s/%s.ics", pair.UnitID, pair.Platform, fingerprint)
}

// FailedKey is the object name for a body that could not be parsed.
func FailedKey(pair models.PairKey, at time.Time) string {
	return fmt.Sprintf("failed/%s/%s/%s.ics", pair.UnitID, pair.Platform, at.UTC().Format("20060102T150405Z"))
}

// StoreFeed archives a body that changed the staged records.
func (a *Archive) StoreFeed(ctx context.Context, pair models.PairKey, fingerprint string, body []byte) error {
	if a == nil {
		return nil
	}
	return a.put(ctx, FeedKey(pair, fingerprint), body)
}

// StoreFailed archives a body the parser rejected.
func (a *Archive) StoreFailed(ctx context.Context, pair models.PairKey, at time.Time, body []byte) error {
	if a == nil {
		return nil
	}
	return a.put(ctx, FailedKey(pair, at), body)
}

func (a *Archive) put(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("archiving %s: %w", key, err)
	}
	a.log.Debug("feed archived", zap.String("key", key), zap.Int("bytes", len(body)))
	return nil
}
