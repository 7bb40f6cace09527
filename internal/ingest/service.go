// Package ingest turns uploaded files into indexed knowledge: extract the
// text, split it into chunks, store the document atomically.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/yuelin-song/communitykb/internal/knowledge"
	"github.com/yuelin-song/communitykb/internal/queue"
	"github.com/yuelin-song/communitykb/pkg/chunker"
	"github.com/yuelin-song/communitykb/pkg/textextract"
)

// ErrEmptyDocument marks a file whose extracted text contains nothing
// indexable. Retrying will not help, so workers should drop the task.
var ErrEmptyDocument = errors.New("document has no extractable text")

type DocumentStore interface {
	StoreDocument(ctx context.Context, req knowledge.StoreDocumentRequest) (int64, error)
}

type Service struct {
	store DocumentStore
	opts  chunker.Options
}

func NewService(store DocumentStore, chunkSize int) *Service {
	opts := chunker.DefaultOptions()
	if chunkSize > 0 {
		opts.ChunkSize = chunkSize
	}
	return &Service{store: store, opts: opts}
}

// Ingest reads the file at payload.Location, extracts and chunks its text,
// and stores the document. On success the source file is removed.
func (s *Service) Ingest(ctx context.Context, payload queue.DocumentIngestPayload) (int64, error) {
	f, err := os.Open(payload.Location)
	if err != nil {
		return 0, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat upload: %w", err)
	}

	text, err := textextract.Extract(f, info.Size(), payload.Format)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", payload.Name, err)
	}

	chunks := chunker.Split(text, s.opts)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%s: %w", payload.Name, ErrEmptyDocument)
	}

	docID, err := s.store.StoreDocument(ctx, knowledge.StoreDocumentRequest{
		Community:  payload.Community,
		Name:       payload.Name,
		Format:     payload.Format,
		SizeBytes:  payload.SizeBytes,
		Location:   payload.Location,
		UploadedBy: payload.UploadedBy,
		Chunks:     chunks,
	})
	if err != nil {
		return 0, err
	}

	if err := os.Remove(payload.Location); err != nil {
		slog.Warn("upload cleanup failed", "location", payload.Location, "error", err)
	}

	return docID, nil
}
