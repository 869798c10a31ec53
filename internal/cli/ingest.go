package cli

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

type ingestFlags struct {
	file        string
	url         string
	title       string
	description string
	user        string
}

func newIngestCmd(flags *globalFlags) *cobra.Command {
	opts := &ingestFlags{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a document or a web page into the knowledge base",
		Long: `Ingest a document or a web page into the knowledge base.

With STORE_DRIVER=memory the result only lives for the duration of the command.

Examples:
  helpdesk ingest --file ./manual.pdf
  helpdesk ingest --url https://example.com/faq --title FAQ`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (opts.file == "") == (opts.url == "") {
				return errors.New("exactly one of --file or --url is required")
			}

			a, err := buildApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if opts.url != "" {
				src, chunks, err := a.Ingest.IngestURL(cmd.Context(), opts.user, opts.url, opts.title, opts.description)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "URL source %d added (%d chunks)\n", src.ID, chunks)
				return nil
			}

			upload, err := stageUpload(opts.file, a.Config.UploadDir)
			if err != nil {
				return err
			}
			doc, chunks, err := a.Ingest.IngestFile(cmd.Context(), opts.user, upload)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Document %d uploaded (%d chunks)\n", doc.ID, chunks)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path of the document to ingest")
	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "URL of the page to ingest")
	cmd.Flags().StringVar(&opts.title, "title", "", "title of the URL source")
	cmd.Flags().StringVar(&opts.description, "description", "", "description of the URL source")
	cmd.Flags().StringVar(&opts.user, "user", "cli", "uploader id recorded on the source")

	return cmd
}

// stageUpload copies path into the upload directory, the same way the HTTP upload does,
// so a failed ingestion never removes the caller's original file.
func stageUpload(path, uploadDir string) (port.UploadedFile, error) {
	src, err := os.Open(path)
	if err != nil {
		return port.UploadedFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return port.UploadedFile{}, fmt.Errorf("create upload dir: %w", err)
	}
	stored := uuid.NewString() + filepath.Ext(path)
	dstPath := filepath.Join(uploadDir, stored)
	dst, err := os.Create(dstPath)
	if err != nil {
		return port.UploadedFile{}, fmt.Errorf("create upload: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(dstPath)
		return port.UploadedFile{}, fmt.Errorf("copy upload: %w", err)
	}

	return port.UploadedFile{
		Path:         dstPath,
		Filename:     stored,
		OriginalName: filepath.Base(path),
		MimeType:     detectMimeType(path),
		Size:         size,
	}, nil
}

func detectMimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head[:n]))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}
