package domain

import "time"

// Chunk is a bounded segment of ingested text with its embedding vector.
// Exactly one of DocumentID and URLSourceID is set.
type Chunk struct {
	ID          int64          `json:"id"            db:"id"`
	DocumentID  *int64         `json:"documentId"    db:"document_id"`
	URLSourceID *int64         `json:"urlSourceId"   db:"url_source_id"`
	Content     string         `json:"content"       db:"content"`
	Vector      []float32      `json:"-"             db:"embedding"`
	Metadata    map[string]any `json:"metadata"      db:"metadata"`
	CreatedAt   time.Time      `json:"createdAt"     db:"created_at"`
}

// SourceID returns the id of the owning document or URL source.
func (c *Chunk) SourceID() int64 {
	if c.DocumentID != nil {
		return *c.DocumentID
	}
	if c.URLSourceID != nil {
		return *c.URLSourceID
	}
	return 0
}

// ScoredChunk is a nearest-neighbor hit. Smaller distance means more similar.
type ScoredChunk struct {
	Chunk
	Distance float64 `json:"distance"`
}
