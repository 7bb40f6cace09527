package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an ingested knowledge file owned by a community.
// Documents are soft-deleted: the row stays for auditing, the chunks go.
type Document struct {
	ID         int64     `json:"id" db:"id"`
	Community  string    `json:"community" db:"community"`
	Name       string    `json:"name" db:"name"`
	Format     string    `json:"format" db:"format"`
	SizeBytes  int64     `json:"size_bytes" db:"size_bytes"`
	Location   string    `json:"location,omitempty" db:"location"`
	ChunkCount int       `json:"chunk_count" db:"chunk_count"`
	TotalChars int       `json:"total_chars" db:"total_chars"`
	UploadedBy int64     `json:"uploaded_by" db:"uploaded_by"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

const (
	DocStatusActive  = "active"
	DocStatusDeleted = "deleted"
)

// Chunk is the atomic unit of retrieval: a bounded slice of a document's
// text plus a small precomputed keyword set used as a match-boost signal.
type Chunk struct {
	ID         int64  `json:"id" db:"id"`
	DocumentID int64  `json:"document_id" db:"document_id"`
	Community  string `json:"community" db:"community"`
	Index      int    `json:"chunk_index" db:"chunk_index"`
	Content    string `json:"content" db:"content"`
	Keywords   string `json:"keywords" db:"keywords"` // comma-joined, lowercase
	CharCount  int    `json:"char_count" db:"char_count"`

	// DocumentName is populated by the list join, not stored on the row.
	DocumentName string `json:"document_name,omitempty" db:"-"`
}

// AIConfig holds the per-community assistant settings.
type AIConfig struct {
	Community    string    `json:"community" db:"community"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	SystemPrompt string    `json:"system_prompt" db:"system_prompt"`
	Temperature  float64   `json:"temperature" db:"temperature"`
	MaxTokens    int       `json:"max_tokens" db:"max_tokens"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultAIConfig returns the settings applied before a community has
// configured anything.
func DefaultAIConfig(community string) *AIConfig {
	return &AIConfig{
		Community:    community,
		Enabled:      false,
		SystemPrompt: "You are a friendly community assistant.",
		Temperature:  0.7,
		MaxTokens:    1024,
	}
}

// UsageRecord is one row of the append-only model-call log. A row is
// written for every completed call, degraded outcomes included.
type UsageRecord struct {
	ID               int64     `json:"id" db:"id"`
	RequestID        uuid.UUID `json:"request_id" db:"request_id"`
	Community        string    `json:"community" db:"community"`
	UserID           int64     `json:"user_id" db:"user_id"`
	Question         string    `json:"question" db:"question"`
	Answer           string    `json:"answer" db:"answer"`
	PromptTokens     int       `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens" db:"total_tokens"`
	LatencyMs        int64     `json:"latency_ms" db:"latency_ms"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
