package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/textli/internal/logging"
	sc "github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/models"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
)

const exportLinkValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportResult points at an uploaded account export.
type ExportResult struct {
	Key       string
	URL       string
	Notes     int
	ExpiresAt time.Time
}

type exportedNote struct {
	Token      string    `json:"token"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Metadata   string    `json:"metadata"`
	Key        string    `json:"key"`
	Content    string    `json:"content"`
}

type exportDocument struct {
	UserName   string         `json:"username"`
	ExportedAt time.Time      `json:"exported_at"`
	Notes      []exportedNote `json:"notes"`
}

// ExportService uploads a user's active notes to S3 and hands back a
// short-lived download link. Blobs are exported as stored, still encrypted.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
	now         func() time.Time
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, l logging.Logger) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: m,
		config:      cfg,
		logger:      l.With("module", "export"),
		now:         time.Now,
	}
}

// ExportKey builds the object key of an export made at t.
func ExportKey(t time.Time) string {
	return fmt.Sprintf("exports/%d/%d/%d/%v.json", t.Year(), t.Month(), t.Day(), uuid.New())
}

func (s *ExportService) Export(ctx context.Context, id models.Identity) (*ExportResult, error) {
	notes, err := s.repomanager.Notes(s.db).ListAllActive(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := exportDocument{UserName: id.UserName, ExportedAt: now, Notes: make([]exportedNote, 0, len(notes))}
	for _, n := range notes {
		doc.Notes = append(doc.Notes, exportedNote{
			Token:      n.Token,
			CreatedAt:  n.CreatedAt,
			ModifiedAt: n.ModifiedAt,
			Metadata:   n.Metadata,
			Key:        n.Key,
			Content:    n.Content,
		})
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding export: %w", err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := ExportKey(now)
	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(exportLinkValidity))
	if err != nil {
		return nil, fmt.Errorf("error presigning export: %w", err)
	}

	s.logger.Info(ctx, "account exported", "user_id", id.UserID, "notes", len(notes), "key", key)
	return &ExportResult{Key: key, URL: req.URL, Notes: len(notes), ExpiresAt: now.Add(exportLinkValidity)}, nil
}

func (s *ExportService) getClient(ctx context.Context) (*s3.Client, error) {
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
