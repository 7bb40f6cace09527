// Package knowledge persists community documents and chunks and ranks
// chunks against live questions.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yuelin-song/communitykb/internal/models"
	"github.com/yuelin-song/communitykb/pkg/chunker"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

type StoreDocumentRequest struct {
	Community  string
	Name       string
	Format     string
	SizeBytes  int64
	Location   string
	UploadedBy int64
	Chunks     []string
}

// StoreDocument inserts the document row and its chunk rows in a single
// transaction, so a document is never visible with a partial chunk set.
// Per-chunk keyword sets are derived here.
func (s *Store) StoreDocument(ctx context.Context, req StoreDocumentRequest) (int64, error) {
	totalChars := 0
	for _, c := range req.Chunks {
		totalChars += len([]rune(c))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var docID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO knowledge_documents (community, name, format, size_bytes, location, chunk_count, total_chars, uploaded_by, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		req.Community, req.Name, req.Format, req.SizeBytes, req.Location,
		len(req.Chunks), totalChars, req.UploadedBy, models.DocStatusActive,
	).Scan(&docID)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}

	rows := make([][]any, len(req.Chunks))
	for i, content := range req.Chunks {
		keywords := chunker.ExtractKeywords(content, 10)
		rows[i] = []any{
			docID, req.Community, i, content,
			strings.Join(keywords, ","), len([]rune(content)),
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"knowledge_chunks"},
		[]string{"document_id", "community", "chunk_index", "content", "keywords", "char_count"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit document: %w", err)
	}

	return docID, nil
}

// DeleteDocument soft-deletes the document row and hard-deletes its chunks.
// Safe to call twice.
func (s *Store) DeleteDocument(ctx context.Context, docID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE knowledge_documents SET status = $1, updated_at = now() WHERE id = $2`,
		models.DocStatusDeleted, docID,
	)
	if err != nil {
		return fmt.Errorf("mark document deleted: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM knowledge_chunks WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// HasKnowledge reports whether the community has at least one active document.
func (s *Store) HasKnowledge(ctx context.Context, community string) (bool, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_documents WHERE community = $1 AND status = $2`,
		community, models.DocStatusActive,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count documents: %w", err)
	}
	return count > 0, nil
}

// ListChunks returns the community's chunks in insertion order, each
// annotated with its source document name.
func (s *Store) ListChunks(ctx context.Context, community string) ([]models.Chunk, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.document_id, c.community, c.chunk_index, c.content, c.keywords, c.char_count, d.name
		 FROM knowledge_chunks c
		 JOIN knowledge_documents d ON d.id = c.document_id
		 WHERE c.community = $1
		 ORDER BY c.id`,
		community,
	)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Community, &c.Index, &c.Content, &c.Keywords, &c.CharCount, &c.DocumentName); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetDocument fetches one document row by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var d models.Document
	err := s.db.QueryRow(ctx,
		`SELECT id, community, name, format, size_bytes, location, chunk_count, total_chars, uploaded_by, status, created_at, updated_at
		 FROM knowledge_documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Community, &d.Name, &d.Format, &d.SizeBytes, &d.Location,
		&d.ChunkCount, &d.TotalChars, &d.UploadedBy, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns the community's active documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, community string) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, community, name, format, size_bytes, location, chunk_count, total_chars, uploaded_by, status, created_at, updated_at
		 FROM knowledge_documents
		 WHERE community = $1 AND status = $2
		 ORDER BY created_at DESC`,
		community, models.DocStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Community, &d.Name, &d.Format, &d.SizeBytes, &d.Location,
			&d.ChunkCount, &d.TotalChars, &d.UploadedBy, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
