package port

import "context"

// UploadedFile describes a file saved to local disk by the upload handler.
type UploadedFile struct {
	Path         string
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
}

// TextExtractor produces plain text from uploaded files and web pages.
type TextExtractor interface {
	ExtractFile(ctx context.Context, f UploadedFile) (string, error)
	ExtractURL(ctx context.Context, url string) (string, error)
}
