package service_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arturoeanton/helpdesk-rag/internal/domain"
	"github.com/arturoeanton/helpdesk-rag/internal/port"
	"github.com/arturoeanton/helpdesk-rag/internal/service"
	"github.com/arturoeanton/helpdesk-rag/internal/testutil"
)

var _ = Describe("EmbeddingService", func() {
	var (
		ctx     context.Context
		a, b, c *testutil.FakeEmbedder
		order   []domain.ProviderID
	)

	BeforeEach(func() {
		ctx = context.Background()
		a = &testutil.FakeEmbedder{Name: "a", EmbedFn: testutil.FailEmbed("a", port.ErrRateLimited)}
		b = &testutil.FakeEmbedder{Name: "b", EmbedFn: testutil.FailEmbed("b", port.ErrUnauthorized)}
		c = &testutil.FakeEmbedder{Name: "c", EmbedFn: testutil.Vector([]float32{1, 2, 3})}
		order = []domain.ProviderID{"a", "b", "c"}
	})

	It("falls through any failure to the first provider that succeeds", func() {
		svc := service.NewEmbeddingService(testutil.Registry(a, b, c), time.Second)

		res, err := svc.Embed(ctx, "hello", order)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Provider).To(Equal(domain.ProviderID("c")))
		Expect(res.Vector).To(Equal([]float32{1, 2, 3}))
		Expect(a.Calls()).To(HaveLen(1))
		Expect(b.Calls()).To(HaveLen(1))
		Expect(c.Calls()).To(Equal([]string{"hello"}))
	})

	It("stops at the first success", func() {
		svc := service.NewEmbeddingService(testutil.Registry(c, a), 0)

		res, err := svc.Embed(ctx, "hello", []domain.ProviderID{"c", "a"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Provider).To(Equal(domain.ProviderID("c")))
		Expect(a.Calls()).To(BeEmpty())
	})

	It("skips unknown and unconfigured providers", func() {
		a.Unconfigured = true
		svc := service.NewEmbeddingService(testutil.Registry(a, c), 0)

		res, err := svc.Embed(ctx, "hello", []domain.ProviderID{"missing", "a", "c"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Provider).To(Equal(domain.ProviderID("c")))
		Expect(a.Calls()).To(BeEmpty())
	})

	It("fails with no providers available when every candidate fails", func() {
		svc := service.NewEmbeddingService(testutil.Registry(a, b), 0)

		_, err := svc.Embed(ctx, "hello", []domain.ProviderID{"a", "b"})
		Expect(err).To(MatchError(port.ErrNoProvidersAvailable))
		Expect(err).To(MatchError(port.ErrUnauthorized))
	})

	It("fails with no providers available when nothing can be tried", func() {
		svc := service.NewEmbeddingService(testutil.Registry(), 0)

		_, err := svc.Embed(ctx, "hello", order)
		Expect(err).To(MatchError(port.ErrNoProvidersAvailable))
	})

	It("bounds every attempt with the per-attempt timeout", func() {
		slow := &testutil.FakeEmbedder{Name: "slow", EmbedFn: func(ctx context.Context, _ string) ([]float32, error) {
			<-ctx.Done()
			return nil, port.NewProviderError("slow", port.ErrTimeout, 0, ctx.Err())
		}}
		svc := service.NewEmbeddingService(testutil.Registry(slow, c), 10*time.Millisecond)

		res, err := svc.Embed(ctx, "hello", []domain.ProviderID{"slow", "c"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Provider).To(Equal(domain.ProviderID("c")))
	})
})

var _ = Describe("ValidateVector", func() {
	It("accepts a finite vector of the expected length", func() {
		Expect(service.ValidateVector([]float32{0.1, 0.2}, 2)).To(Succeed())
		Expect(service.ValidateVector([]float32{0.1, 0.2}, 0)).To(Succeed())
	})

	It("rejects empty and non-finite vectors", func() {
		Expect(service.ValidateVector(nil, 0)).To(MatchError(port.ErrInvalidEmbedding))
		Expect(service.ValidateVector([]float32{float32(math.NaN())}, 0)).To(MatchError(port.ErrInvalidEmbedding))
		Expect(service.ValidateVector([]float32{float32(math.Inf(1))}, 0)).To(MatchError(port.ErrInvalidEmbedding))
	})

	It("rejects a vector of the wrong length", func() {
		Expect(service.ValidateVector([]float32{1, 2, 3}, 768)).To(MatchError(port.ErrDimensionMismatch))
	})
})
