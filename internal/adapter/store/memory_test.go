package store_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arturoeanton/helpdesk-rag/internal/adapter/store"
	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

var _ = Describe("MemoryStore", func() {
	var (
		ctx context.Context
		mem *store.MemoryStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		mem = store.NewMemoryStore()
	})

	ingestDoc := func(name string, vectors ...[]float32) *domain.Document {
		var doc *domain.Document
		err := mem.WithinTx(ctx, func(tx port.KnowledgeTx) error {
			d, err := tx.CreateDocument(ctx, &domain.Document{OriginalName: name})
			if err != nil {
				return err
			}
			doc = d
			for _, v := range vectors {
				if err := tx.InsertChunk(ctx, &domain.Chunk{DocumentID: &d.ID, Content: name, Vector: v}); err != nil {
					return err
				}
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		return doc
	}

	Describe("NearestNeighbors", func() {
		It("orders by negative inner product and limits to k", func() {
			ingestDoc("far", []float32{0, 1})
			ingestDoc("near", []float32{1, 0})
			ingestDoc("middle", []float32{0.5, 0.5})

			hits, err := mem.NearestNeighbors(ctx, []float32{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))
			Expect(hits[0].Content).To(Equal("near"))
			Expect(hits[0].Distance).To(BeNumerically("~", -1, 1e-9))
			Expect(hits[1].Content).To(Equal("middle"))
			Expect(hits[1].Distance).To(BeNumerically("~", -0.5, 1e-9))
		})

		It("breaks ties by insertion order", func() {
			ingestDoc("first", []float32{1, 0})
			ingestDoc("second", []float32{1, 0})

			hits, err := mem.NearestNeighbors(ctx, []float32{1, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))
			Expect(hits[0].Content).To(Equal("first"))
			Expect(hits[1].Content).To(Equal("second"))
		})

		It("returns nothing for an empty store", func() {
			hits, err := mem.NearestNeighbors(ctx, []float32{1}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})

		It("rejects a query of a different dimension", func() {
			ingestDoc("doc", []float32{1, 0})

			_, err := mem.NearestNeighbors(ctx, []float32{1, 0, 0}, 3)
			Expect(err).To(MatchError(port.ErrDimensionMismatch))
		})
	})

	Describe("WithinTx", func() {
		It("keeps nothing when fn fails", func() {
			boom := errors.New("boom")
			err := mem.WithinTx(ctx, func(tx port.KnowledgeTx) error {
				d, err := tx.CreateDocument(ctx, &domain.Document{OriginalName: "x"})
				Expect(err).NotTo(HaveOccurred())
				Expect(tx.InsertChunk(ctx, &domain.Chunk{DocumentID: &d.ID, Vector: []float32{1}})).To(Succeed())
				return boom
			})
			Expect(err).To(MatchError(boom))

			docs, err := mem.ListDocuments(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
			hits, err := mem.NearestNeighbors(ctx, []float32{1}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})

		It("requires exactly one owner per chunk", func() {
			err := mem.WithinTx(ctx, func(tx port.KnowledgeTx) error {
				return tx.InsertChunk(ctx, &domain.Chunk{Vector: []float32{1}})
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a duplicate URL", func() {
			add := func() error {
				return mem.WithinTx(ctx, func(tx port.KnowledgeTx) error {
					_, err := tx.CreateURLSource(ctx, &domain.URLSource{URL: "https://example.com"})
					return err
				})
			}
			Expect(add()).To(Succeed())
			Expect(add()).To(MatchError(store.ErrDuplicateURL))
		})
	})

	Describe("DeleteSource", func() {
		It("removes the source and its chunks only", func() {
			keep := ingestDoc("keep", []float32{1})
			gone := ingestDoc("gone", []float32{1}, []float32{1})

			Expect(mem.DeleteSource(ctx, gone.ID)).To(Succeed())

			docs, err := mem.ListDocuments(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal(keep.ID))

			hits, err := mem.NearestNeighbors(ctx, []float32{1}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].Content).To(Equal("keep"))
		})

		It("reports an unknown id", func() {
			Expect(mem.DeleteSource(ctx, 42)).To(MatchError(port.ErrSourceNotFound))
		})
	})

	Describe("chat logs and sessions", func() {
		It("lists a user's logs oldest first and filters by session", func() {
			for _, l := range []domain.ChatLog{
				{UserID: "u1", SessionID: "s1", Message: "one"},
				{UserID: "u1", SessionID: "s2", Message: "two"},
				{UserID: "u2", SessionID: "s1", Message: "other"},
			} {
				Expect(mem.CreateChatLog(ctx, &l)).To(Succeed())
			}

			all, err := mem.ListChatLogs(ctx, "u1", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].Message).To(Equal("one"))

			s2, err := mem.ListChatLogs(ctx, "u1", "s2")
			Expect(err).NotTo(HaveOccurred())
			Expect(s2).To(HaveLen(1))
			Expect(s2[0].Message).To(Equal("two"))

			recent, err := mem.ListAllChatLogs(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].Message).To(Equal("other"))
		})

		It("lists sessions newest first and deletes them with their logs", func() {
			now := time.Now()
			_, err := mem.CreateSession(ctx, &domain.ChatSession{ID: "old", UserID: "u1", Name: "a", CreatedAt: now.Add(-time.Hour)})
			Expect(err).NotTo(HaveOccurred())
			_, err = mem.CreateSession(ctx, &domain.ChatSession{ID: "new", UserID: "u1", Name: "b", CreatedAt: now})
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.CreateChatLog(ctx, &domain.ChatLog{UserID: "u1", SessionID: "old", Message: "m"})).To(Succeed())

			sessions, err := mem.ListSessions(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			Expect(sessions[0].ID).To(Equal("new"))

			Expect(mem.DeleteSession(ctx, "u2", "old")).To(MatchError(port.ErrSessionNotFound))
			Expect(mem.DeleteSession(ctx, "u1", "old")).To(Succeed())

			logs, err := mem.ListChatLogs(ctx, "u1", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(BeEmpty())
		})
	})

	Describe("API keys", func() {
		It("creates, finds, toggles and deletes keys", func() {
			k, err := mem.CreateAPIKey(ctx, &domain.APIKey{Key: "k1", Description: "site", Active: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(k.ID).NotTo(BeZero())
			Expect(k.CreatedAt).NotTo(BeZero())

			_, err = mem.CreateAPIKey(ctx, &domain.APIKey{Key: "k1"})
			Expect(err).To(MatchError(port.ErrAPIKeyExists))

			found, err := mem.FindActiveAPIKey(ctx, "k1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(k.ID))

			inactive := false
			blank := ""
			updated, err := mem.UpdateAPIKey(ctx, k.ID, domain.APIKeyPatch{Active: &inactive, Description: &blank})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Active).To(BeFalse())
			Expect(updated.Description).To(Equal("site"))

			_, err = mem.FindActiveAPIKey(ctx, "k1")
			Expect(err).To(MatchError(port.ErrAPIKeyNotFound))

			_, err = mem.UpdateAPIKey(ctx, 999, domain.APIKeyPatch{})
			Expect(err).To(MatchError(port.ErrAPIKeyNotFound))

			Expect(mem.DeleteAPIKey(ctx, k.ID)).To(Succeed())
			Expect(mem.DeleteAPIKey(ctx, k.ID)).To(Succeed())
			keys, err := mem.ListAPIKeys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(BeEmpty())
		})
	})
})
