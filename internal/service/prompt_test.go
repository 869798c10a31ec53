package service_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/service"
)

var _ = Describe("Prompt helpers", func() {
	const rejection = "Sorry, off topic."

	Describe("BuildPrompt", func() {
		It("embeds context, rejection and message", func() {
			p := service.BuildPrompt("ctx line", rejection, "how?")
			Expect(p).To(HavePrefix("Context:\nctx line\n\n"))
			Expect(p).To(ContainSubstring(`reply: "Sorry, off topic.".`))
			Expect(p).To(HaveSuffix("User: how?\nAI:"))
		})
	})

	Describe("BuildContext", func() {
		It("joins hit contents in order with newlines", func() {
			hits := []domain.ScoredChunk{
				{Chunk: domain.Chunk{Content: "first"}},
				{Chunk: domain.Chunk{Content: "second"}},
			}
			Expect(service.BuildContext(hits)).To(Equal("first\nsecond"))
		})
	})

	DescribeTable("StripHedges",
		func(in, want string) {
			Expect(service.StripHedges(in)).To(Equal(want))
		},
		Entry("based on the context", "Based on the context, reset the router.", "reset the router."),
		Entry("case insensitive", "according to the provided context: yes", "yes"),
		Entry("only a leading phrase", "Yes. Based on the context, no.", "Yes. Based on the context, no."),
		Entry("no hedge", "Reboot it.", "Reboot it."),
	)

	Describe("PostProcess", func() {
		It("collapses any answer containing the rejection to exactly the rejection", func() {
			Expect(service.PostProcess("  I think: Sorry, off topic. Bye ", rejection)).To(Equal(rejection))
		})

		It("trims and strips hedges from normal answers", func() {
			Expect(service.PostProcess("\n From context - Press F5.\n", rejection)).To(Equal("Press F5."))
		})
	})

	Describe("Relevant", func() {
		hit := func(d float64) []domain.ScoredChunk {
			return []domain.ScoredChunk{{Distance: d}}
		}

		It("accepts the closest hit at or under the threshold", func() {
			Expect(service.Relevant(hit(0.69), 0.7)).To(BeTrue())
			Expect(service.Relevant(hit(0.7), 0.7)).To(BeTrue())
		})

		It("rejects a closest hit over the threshold or no hits at all", func() {
			Expect(service.Relevant(hit(0.71), 0.7)).To(BeFalse())
			Expect(service.Relevant(nil, 0.7)).To(BeFalse())
		})
	})
})
