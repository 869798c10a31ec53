package mcp

import (
	"context"
	"errors"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/pkg/logger"
)

type fakeKnowledge struct {
	reply    *domain.ChatReply
	hits     []domain.ScoredChunk
	err      error
	askedBy  string
	searchK  int
	question string
}

func (f *fakeKnowledge) Ask(_ context.Context, userID, _, message string) (*domain.ChatReply, error) {
	f.askedBy, f.question = userID, message
	return f.reply, f.err
}

func (f *fakeKnowledge) Search(_ context.Context, _ string, k int) ([]domain.ScoredChunk, error) {
	f.searchK = k
	return f.hits, f.err
}

func resultText(r *gomcp.CallToolResult) string {
	Expect(r).NotTo(BeNil())
	Expect(r.Content).To(HaveLen(1))
	text, ok := r.Content[0].(*gomcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		ctx       context.Context
		knowledge *fakeKnowledge
		server    *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		knowledge = &fakeKnowledge{}
		var err error
		server, err = NewServer(Config{Knowledge: knowledge, Version: "test", Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("requires a knowledge service and a logger", func() {
			_, err := NewServer(Config{Logger: logger.Nop()})
			Expect(err).To(MatchError("knowledge service is required"))

			_, err = NewServer(Config{Knowledge: knowledge})
			Expect(err).To(MatchError("logger is required"))
		})

		It("exposes an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("ask", func() {
		It("answers as the mcp user", func() {
			knowledge.reply = &domain.ChatReply{Response: "Reboot.", ModelUsed: "gemini", InScope: true}

			res, out, err := server.handleAsk(ctx, nil, AskInput{Question: "printer?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeNil())
			Expect(out).To(Equal(AskOutput{Answer: "Reboot.", ModelUsed: "gemini", InScope: true}))
			Expect(knowledge.askedBy).To(Equal(UserID))
			Expect(knowledge.question).To(Equal("printer?"))
		})

		It("requires a question", func() {
			res, _, err := server.handleAsk(ctx, nil, AskInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(Equal("question is required"))
		})

		It("reports busy providers as a tool error", func() {
			knowledge.err = fmt.Errorf("complete: %w", port.ErrAllProvidersRateLimited)

			res, _, err := server.handleAsk(ctx, nil, AskInput{Question: "printer?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("currently busy"))
		})
	})

	Describe("search_knowledge", func() {
		It("maps hits to results", func() {
			docID := int64(7)
			knowledge.hits = []domain.ScoredChunk{
				{Chunk: domain.Chunk{ID: 3, DocumentID: &docID, Content: "toner"}, Distance: -0.9},
			}

			res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "toner", TopK: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeNil())
			Expect(knowledge.searchK).To(Equal(5))
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0]).To(Equal(SearchResult{ChunkID: 3, SourceID: 7, Distance: -0.9, Content: "toner"}))
		})

		It("reports search failures as a tool error", func() {
			knowledge.err = errors.New("db down")

			res, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "toner"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resultText(res)).To(ContainSubstring("db down"))
		})

		It("requires a query", func() {
			res, _, err := server.handleSearch(ctx, nil, SearchInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})
})
