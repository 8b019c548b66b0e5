// Package docstore manages scoped Gemini file-search stores: created for one
// synthesis run, populated, queried, and deleted when the run ends.
package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/genai"
)

// Store is the document-store collaborator the workflows depend on.
type Store interface {
	Create(ctx context.Context, displayName string) (string, error)
	Upload(ctx context.Context, storeName, path string) error
	Query(ctx context.Context, storeName, prompt string) (string, error)
	Delete(ctx context.Context, storeName string) error
}

// GeminiStore backs Store with the Gemini File Search API.
type GeminiStore struct {
	Model        string // model used for store-grounded queries
	pollInterval time.Duration
}

var _ Store = (*GeminiStore)(nil)

func NewGeminiStore(model string) *GeminiStore {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiStore{Model: model, pollInterval: 3 * time.Second}
}

func (s *GeminiStore) client(ctx context.Context) (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
}

// Create provisions a new file-search store and returns its resource name.
func (s *GeminiStore) Create(ctx context.Context, displayName string) (string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}
	store, err := client.FileSearchStores.Create(ctx, &genai.CreateFileSearchStoreConfig{
		DisplayName: displayName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create file search store: %w", err)
	}
	return store.Name, nil
}

// Upload imports a local file into the store, waiting for indexing to finish.
func (s *GeminiStore) Upload(ctx context.Context, storeName, path string) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	op, err := client.FileSearchStores.UploadToFileSearchStoreFromPath(ctx, path, storeName, &genai.UploadToFileSearchStoreConfig{
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to store: %w", path, err)
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
		op, err = client.Operations.GetUploadToFileSearchStoreOperation(ctx, op, nil)
		if err != nil {
			return fmt.Errorf("failed to poll store upload: %w", err)
		}
	}
	return nil
}

// Query generates a response grounded in the store's documents.
func (s *GeminiStore) Query(ctx context.Context, storeName, prompt string) (string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, s.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{FileSearch: &genai.FileSearch{FileSearchStoreNames: []string{storeName}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("store-grounded generation failed: %w", err)
	}
	return resp.Text(), nil
}

// Delete tears the store down, documents included.
func (s *GeminiStore) Delete(ctx context.Context, storeName string) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	if err := client.FileSearchStores.Delete(ctx, storeName, &genai.DeleteFileSearchStoreConfig{Force: genai.Ptr(true)}); err != nil {
		return fmt.Errorf("failed to delete file search store %s: %w", storeName, err)
	}
	return nil
}
