package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestLocalBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dossiers")
	b := &LocalBackend{Dir: dir}
	data := []byte("%PDF-1.7 fake")

	u, err := b.Save(t.Context(), "Dossier_Playa_Viva_Ana_Gomez_1.pdf", data)
	if err != nil {
		t.Fatal(err)
	}

	if want := "/api/local-dossiers/Dossier_Playa_Viva_Ana_Gomez_1.pdf"; u != want {
		t.Errorf("wanted URL %q, got %q", want, u)
	}

	onDisk, err := os.ReadFile(filepath.Join(dir, "Dossier_Playa_Viva_Ana_Gomez_1.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Error("file contents differ from what was saved")
	}

	got, err := b.Open("Dossier_Playa_Viva_Ana_Gomez_1.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("Open returned different contents")
	}

	if _, err := b.Open("missing.pdf"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("wanted not-exist error, got %v", err)
	}
}

func TestLocalBackendRejectsUnsafeNames(t *testing.T) {
	b := &LocalBackend{Dir: t.TempDir()}

	for _, name := range []string{"", "../etc/passwd", "a b.pdf", "dir/file.pdf", "ñ.pdf"} {
		t.Run(name, func(t *testing.T) {
			if _, err := b.Open(name); !errors.Is(err, ErrInvalidFilename) {
				t.Errorf("Open: wanted ErrInvalidFilename, got %v", err)
			}
			if _, err := b.Save(t.Context(), name, nil); !errors.Is(err, ErrInvalidFilename) {
				t.Errorf("Save: wanted ErrInvalidFilename, got %v", err)
			}
		})
	}
}

type fakeObjects struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return "https://signed.example.com/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key), nil
}

func TestS3BackendSave(t *testing.T) {
	objects := &fakeObjects{}
	presigner := &fakePresigner{}
	b := &S3Backend{bucket: "my-bucket", objects: objects, presigner: presigner}

	u, err := b.Save(t.Context(), "file.pdf", []byte("pdf"))
	if err != nil {
		t.Fatal(err)
	}

	if want := "https://signed.example.com/my-bucket/dossiers/file.pdf"; u != want {
		t.Errorf("wanted %q, got %q", want, u)
	}
	if got := aws.ToString(objects.input.ContentType); got != "application/pdf" {
		t.Errorf("wanted application/pdf content type, got %q", got)
	}
	if string(objects.body) != "pdf" {
		t.Errorf("uploaded body mismatch: %q", objects.body)
	}
	if presigner.expires != 24*time.Hour {
		t.Errorf("wanted 24h signed URL, got %s", presigner.expires)
	}
}

func TestS3BackendUploadFailure(t *testing.T) {
	boom := errors.New("boom")
	b := &S3Backend{bucket: "b", objects: &fakeObjects{err: boom}, presigner: &fakePresigner{}}

	if _, err := b.Save(t.Context(), "file.pdf", nil); !errors.Is(err, boom) {
		t.Errorf("wanted wrapped upload error, got %v", err)
	}
}

func TestNewBackend(t *testing.T) {
	if got := NewBackend(ResolveConfig(fullConfig()), t.TempDir()).Name(); got != "s3" {
		t.Errorf("wanted s3 backend, got %s", got)
	}
	if got := NewBackend(Config{}, t.TempDir()).Name(); got != "local" {
		t.Errorf("wanted local backend, got %s", got)
	}
}
