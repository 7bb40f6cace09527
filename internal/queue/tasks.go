package queue

// Task types routed through Redis.
const (
	TypeDocumentIngest = "document:ingest"
)

// DocumentIngestPayload describes one uploaded file waiting to be chunked
// and indexed. Location is a path under the uploads directory; the worker
// deletes the file once the document is stored.
type DocumentIngestPayload struct {
	Community  string `json:"community"`
	Name       string `json:"name"`
	Format     string `json:"format"`
	SizeBytes  int64  `json:"size_bytes"`
	Location   string `json:"location"`
	UploadedBy int64  `json:"uploaded_by"`
}
