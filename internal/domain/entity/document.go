package entity

import "time"

// Document represents an uploaded file (plan set, letter, site photo)
type Document struct {
	ID          int64     `json:"id"`
	PermitID    int64     `json:"permit_id"`
	Kind        string    `json:"kind"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	StoragePath string    `json:"-"`
	SizeBytes   int64     `json:"size_bytes"`
	IndexStatus string    `json:"index_status"`
	IndexError  string    `json:"index_error,omitempty"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentChunk is a slice of a document's text kept for retrieval.
// Embedding is empty when no vector could be computed.
type DocumentChunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	PermitID   int64     `json:"permit_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
