package domain

import "time"

// Document is an uploaded file whose text has been ingested into the knowledge base.
type Document struct {
	ID           int64     `json:"id"           db:"id"`
	Filename     string    `json:"filename"     db:"filename"` // stored name on disk
	OriginalName string    `json:"originalname" db:"original_name"`
	MimeType     string    `json:"mimetype"     db:"mime_type"`
	Size         int64     `json:"size"         db:"size"`
	UploaderID   string    `json:"uploaderId"   db:"uploader_id"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// URLSource is a scraped web page whose body text has been ingested.
type URLSource struct {
	ID          int64     `json:"id"          db:"id"`
	URL         string    `json:"url"         db:"url"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	AddedBy     string    `json:"addedBy"     db:"added_by"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}
