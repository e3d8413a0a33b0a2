package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// KeyPrefix is the object key folder dossiers are uploaded under.
	KeyPrefix = "dossiers"

	// LocalRoute is the path the download route is mounted on.
	LocalRoute = "/api/local-dossiers/"

	SignedURLTTL = 24 * time.Hour

	contentTypePDF = "application/pdf"
)

var (
	ErrInvalidFilename = errors.New("storage: invalid filename")

	safeFilename = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// Backend persists a finished dossier and returns a URL the lead can use to
// fetch it.
type Backend interface {
	Name() string
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// ValidFilename reports whether name is safe to join onto the local folder.
func ValidFilename(name string) bool {
	return safeFilename.MatchString(name)
}

// LocalBackend writes dossiers into a single flat folder.
type LocalBackend struct {
	Dir string
}

func (l *LocalBackend) Name() string { return "local" }

func (l *LocalBackend) Save(_ context.Context, filename string, data []byte) (string, error) {
	if !ValidFilename(filename) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", fmt.Errorf("can't create dossier directory %s: %w", l.Dir, err)
	}

	path := filepath.Join(l.Dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("can't write dossier %s: %w", path, err)
	}

	return LocalRoute + url.PathEscape(filename), nil
}

// Open returns a previously saved dossier.
func (l *LocalBackend) Open(filename string) ([]byte, error) {
	if !ValidFilename(filename) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	return os.ReadFile(filepath.Join(l.Dir, filepath.Base(filename)))
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error)
}

type s3Presigner struct {
	client *s3.PresignClient
}

func (p s3Presigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// S3Backend uploads dossiers to an S3-compatible bucket and hands out
// presigned download links.
type S3Backend struct {
	bucket    string
	objects   objectAPI
	presigner presignAPI
}

// NewS3Backend builds a client for the configured endpoint. Path-style
// addressing is forced since most S3-compatible providers expect it.
func NewS3Backend(c Config) *S3Backend {
	endpoint := c.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	client := s3.New(s3.Options{
		Region:       c.Region,
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
	})

	return &S3Backend{
		bucket:    c.Bucket,
		objects:   client,
		presigner: s3Presigner{client: s3.NewPresignClient(client)},
	}
}

func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) Save(ctx context.Context, filename string, data []byte) (string, error) {
	key := KeyPrefix + "/" + filename

	if _, err := b.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypePDF),
	}); err != nil {
		return "", fmt.Errorf("can't upload %s to bucket %s: %w", key, b.bucket, err)
	}

	signed, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(SignedURLTTL))
	if err != nil {
		return "", fmt.Errorf("can't sign download URL for %s: %w", key, err)
	}

	return signed, nil
}

// NewBackend picks object storage when it is fully configured and the local
// folder otherwise.
func NewBackend(c Config, localDir string) Backend {
	if IsEnabled(c) {
		return NewS3Backend(c)
	}
	return &LocalBackend{Dir: localDir}
}
