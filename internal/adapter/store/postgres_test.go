package store_test

import (
	"context"
	"database/sql"
	"errors"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arturoeanton/helpdesk-rag/internal/adapter/store"
	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

// schemaDimension is the width of chunks.embedding in schema.sql.
const schemaDimension = 768

// testDatabaseURL returns the PostgreSQL connection string from environment or skips the test.
// The tables are truncated, so never point it at a database holding real data.
func testDatabaseURL() string {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		Skip("TEST_DATABASE_URL not set, skipping PostgreSQL tests")
	}
	return dsn
}

// axis returns a schemaDimension-wide vector with x in the first component.
func axis(x float32) []float32 {
	v := make([]float32, schemaDimension)
	v[0] = x
	return v
}

var _ = Describe("PostgresStore", func() {
	var (
		ctx     context.Context
		pg      *store.PostgresStore
		vectors *store.VectorStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := testDatabaseURL()

		var err error
		pg, err = store.NewPostgresStore(dsn)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pg.Close)
		Expect(pg.EnsureSchema(ctx, schemaDimension)).To(Succeed())
		vectors = store.NewVectorStore(pg)

		// Clean all tables before each test for isolation.
		raw, err := sql.Open("postgres", dsn)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(raw.Close)
		_, err = raw.ExecContext(ctx, `TRUNCATE chunks, documents, url_sources, chat_logs, chat_sessions, api_keys`)
		Expect(err).NotTo(HaveOccurred())
	})

	ingestDoc := func(name string, vecs ...[]float32) *domain.Document {
		var doc *domain.Document
		err := pg.WithinTx(ctx, func(tx port.KnowledgeTx) error {
			d, err := tx.CreateDocument(ctx, &domain.Document{Filename: name, OriginalName: name, UploaderID: "admin"})
			if err != nil {
				return err
			}
			doc = d
			for _, v := range vecs {
				if err := tx.InsertChunk(ctx, &domain.Chunk{DocumentID: &d.ID, Content: name, Vector: v, Metadata: map[string]any{"source": name}}); err != nil {
					return err
				}
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		return doc
	}

	ingestURL := func(url string, vecs ...[]float32) *domain.URLSource {
		var src *domain.URLSource
		err := pg.WithinTx(ctx, func(tx port.KnowledgeTx) error {
			u, err := tx.CreateURLSource(ctx, &domain.URLSource{URL: url, AddedBy: "admin"})
			if err != nil {
				return err
			}
			src = u
			for _, v := range vecs {
				if err := tx.InsertChunk(ctx, &domain.Chunk{URLSourceID: &u.ID, Content: url, Vector: v}); err != nil {
					return err
				}
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		return src
	}

	Describe("EnsureSchema", func() {
		It("is idempotent", func() {
			Expect(pg.EnsureSchema(ctx, schemaDimension)).To(Succeed())
		})

		It("refuses an embedding dimension the schema does not store", func() {
			Expect(pg.EnsureSchema(ctx, 1536)).To(MatchError(port.ErrDimensionMismatch))
		})
	})

	Describe("NearestNeighbors", func() {
		It("orders by negative inner product and limits to k", func() {
			ingestDoc("far", axis(-1))
			ingestDoc("close", axis(1))
			ingestDoc("mid", axis(0.5))

			hits, err := vectors.NearestNeighbors(ctx, axis(1), 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))
			Expect(hits[0].Content).To(Equal("close"))
			Expect(hits[0].Distance).To(BeNumerically("~", -1, 1e-6))
			Expect(hits[0].Metadata).To(HaveKeyWithValue("source", "close"))
			Expect(hits[1].Content).To(Equal("mid"))
			Expect(hits[1].Distance).To(BeNumerically("~", -0.5, 1e-6))
		})

		It("breaks ties by insertion order", func() {
			ingestDoc("first", axis(1))
			ingestDoc("second", axis(1))

			hits, err := vectors.NearestNeighbors(ctx, axis(1), 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))
			Expect(hits[0].Content).To(Equal("first"))
			Expect(hits[1].Content).To(Equal("second"))
		})
	})

	Describe("WithinTx", func() {
		It("keeps nothing when fn fails", func() {
			boom := errors.New("boom")
			err := pg.WithinTx(ctx, func(tx port.KnowledgeTx) error {
				d, err := tx.CreateDocument(ctx, &domain.Document{Filename: "x", OriginalName: "x", UploaderID: "admin"})
				if err != nil {
					return err
				}
				if err := tx.InsertChunk(ctx, &domain.Chunk{DocumentID: &d.ID, Content: "x", Vector: axis(1)}); err != nil {
					return err
				}
				return boom
			})
			Expect(err).To(MatchError(boom))

			docs, err := pg.ListDocuments(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
			hits, err := vectors.NearestNeighbors(ctx, axis(1), 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})
	})

	Describe("DeleteSource", func() {
		It("draws document and URL ids from one sequence", func() {
			doc := ingestDoc("guide", axis(1))
			src := ingestURL("https://help.example.com/vpn", axis(0.5))
			Expect(src.ID).NotTo(Equal(doc.ID))
		})

		It("cascades to the source's chunks and leaves other sources alone", func() {
			doc := ingestDoc("guide", axis(1), axis(0.9))
			src := ingestURL("https://help.example.com/vpn", axis(0.5))

			Expect(pg.DeleteSource(ctx, doc.ID)).To(Succeed())

			hits, err := vectors.NearestNeighbors(ctx, axis(1), 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].URLSourceID).NotTo(BeNil())
			Expect(*hits[0].URLSourceID).To(Equal(src.ID))

			urls, err := pg.ListURLSources(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(urls).To(HaveLen(1))
		})

		It("reports an unknown id", func() {
			Expect(pg.DeleteSource(ctx, 424242)).To(MatchError(port.ErrSourceNotFound))
		})
	})

	Describe("API keys", func() {
		It("creates, finds, toggles and deletes keys", func() {
			k, err := pg.CreateAPIKey(ctx, &domain.APIKey{Key: "k1", Description: "site", Active: true})
			Expect(err).NotTo(HaveOccurred())

			_, err = pg.CreateAPIKey(ctx, &domain.APIKey{Key: "k1", Active: true})
			Expect(err).To(MatchError(port.ErrAPIKeyExists))

			found, err := pg.FindActiveAPIKey(ctx, "k1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(k.ID))

			inactive := false
			updated, err := pg.UpdateAPIKey(ctx, k.ID, domain.APIKeyPatch{Active: &inactive})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Active).To(BeFalse())
			Expect(updated.Description).To(Equal("site"))

			_, err = pg.FindActiveAPIKey(ctx, "k1")
			Expect(err).To(MatchError(port.ErrAPIKeyNotFound))
			_, err = pg.UpdateAPIKey(ctx, k.ID+1000, domain.APIKeyPatch{})
			Expect(err).To(MatchError(port.ErrAPIKeyNotFound))

			Expect(pg.DeleteAPIKey(ctx, k.ID)).To(Succeed())
			keys, err := pg.ListAPIKeys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(BeEmpty())
		})
	})
})
