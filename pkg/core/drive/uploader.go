// Package drive uploads report files to Google Drive, optionally converting
// them to Google Docs for easier review and text extraction.
package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const googleDocMIME = "application/vnd.google-apps.document"

// UploadResult identifies the uploaded file in Drive.
type UploadResult struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

// Uploader is the Drive collaborator the workflows depend on.
type Uploader interface {
	Upload(ctx context.Context, path string, opts UploadOptions) (*UploadResult, error)
}

// UploadOptions control placement and conversion.
type UploadOptions struct {
	FolderID     string // empty uploads to the Drive root
	FileName     string // empty uses the file's base name without extension
	ConvertToDoc bool   // convert to Google Doc
	DeleteLocal  bool   // remove the local file after a successful upload
}

// Service uploads through the Drive v3 API using Application Default
// Credentials (gcloud auth application-default login locally, attached
// service account on Google Cloud).
type Service struct {
	opts []option.ClientOption
}

var _ Uploader = (*Service)(nil)

func NewService(opts ...option.ClientOption) *Service {
	return &Service{opts: opts}
}

func (s *Service) Upload(ctx context.Context, path string, opts UploadOptions) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s for upload: %w", path, err)
	}
	defer f.Close()

	clientOpts := append([]option.ClientOption{option.WithScopes(drive.DriveFileScope)}, s.opts...)
	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	name := opts.FileName
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	meta := &drive.File{Name: name}
	if opts.FolderID != "" {
		meta.Parents = []string{opts.FolderID}
	}
	if opts.ConvertToDoc {
		meta.MimeType = googleDocMIME
	}

	created, err := svc.Files.Create(meta).
		Media(f).
		SupportsAllDrives(true).
		Fields("id", "name", "mimeType", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive upload of %s failed: %w", name, err)
	}

	if opts.DeleteLocal {
		f.Close()
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("uploaded but failed to remove local file %s: %w", path, err)
		}
	}

	return &UploadResult{
		ID:       created.Id,
		Name:     created.Name,
		URL:      created.WebViewLink,
		MimeType: created.MimeType,
	}, nil
}
