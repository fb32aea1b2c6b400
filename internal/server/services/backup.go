package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/soullink/internal/logging"
	sc "github.com/dmitrijs2005/soullink/internal/server/config"
	"github.com/dmitrijs2005/soullink/internal/server/repositories/repomanager"
	"github.com/oklog/ulid/v2"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// BackupService periodically exports documents changed since its last run
// to an S3-compatible bucket, one object per document version.
type BackupService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger

	mu        sync.Mutex
	watermark time.Time
	entropy   io.Reader
}

func NewBackupService(db *sql.DB, rm repomanager.RepositoryManager, config *sc.Config, logger logging.Logger) *BackupService {
	return &BackupService{
		db:          db,
		repomanager: rm,
		config:      config,
		logger:      logging.OrNop(logger).With("module", "backup_service"),
		entropy:     ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func BackupKey(userID string, at time.Time, id string) string {
	at = at.UTC()
	return fmt.Sprintf("users/%s/%d/%02d/%02d/%s.json", userID, at.Year(), at.Month(), at.Day(), id)
}

func (s *BackupService) getS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// BackupOnce uploads every document updated after the previous successful
// upload and returns how many were written. On a failed upload the
// watermark stays at the last document that made it, so the rest is
// retried next time.
func (s *BackupService) BackupOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repomanager.Documents(s.db).ListUpdatedSince(ctx, s.watermark)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	client, err := s.getS3Client(ctx)
	if err != nil {
		return 0, fmt.Errorf("s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	for i, r := range records {
		id := ulid.MustNew(ulid.Timestamp(r.UpdatedAt), s.entropy).String()
		key := BackupKey(r.UserID, r.UpdatedAt, id)

		_, err := putObject(client, ctx, &s3.PutObjectInput{
			Bucket:      &bucket,
			Key:         &key,
			Body:        bytes.NewReader(r.Doc),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return i, fmt.Errorf("put %s: %w", key, err)
		}
		s.watermark = r.UpdatedAt
	}

	return len(records), nil
}

// Run backs up on every tick until ctx is canceled.
func (s *BackupService) Run(ctx context.Context) error {
	interval := s.config.BackupInterval
	if interval <= 0 {
		return fmt.Errorf("backup interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "Starting backup loop", "interval", interval.String(), "bucket", s.config.S3Bucket)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping backup loop...")
			return nil
		case <-ticker.C:
			n, err := s.BackupOnce(ctx)
			if err != nil {
				s.logger.Error(ctx, "backup failed", "written", n, "err", err)
				continue
			}
			if n > 0 {
				s.logger.Info(ctx, "backup written", "documents", n)
			}
		}
	}
}
