package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/yuelin-song/communitykb/internal/queue"
)

// Worker consumes document:ingest tasks.
type Worker struct {
	svc *Service
}

func NewWorker(svc *Service) *Worker {
	return &Worker{svc: svc}
}

func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	slog.Info("ingesting document",
		"community", payload.Community, "name", payload.Name, "format", payload.Format)

	docID, err := w.svc.Ingest(ctx, payload)
	if err != nil {
		if errors.Is(err, ErrEmptyDocument) {
			slog.Warn("skipping empty document", "community", payload.Community, "name", payload.Name)
			return fmt.Errorf("%w: %s", asynq.SkipRetry, err)
		}
		return err
	}

	slog.Info("document ingested",
		"community", payload.Community, "name", payload.Name, "document_id", docID)
	return nil
}
