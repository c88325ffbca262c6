package postgen_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/inkwell/pkg/llm"
	"github.com/papercomputeco/inkwell/pkg/merkle"
	"github.com/papercomputeco/inkwell/pkg/postgen"
	"github.com/papercomputeco/inkwell/pkg/ratelimit"
	"github.com/papercomputeco/inkwell/pkg/storage"
	"github.com/papercomputeco/inkwell/pkg/storage/inmemory"
)

type failingDrafts struct{}

func (failingDrafts) PutDraft(context.Context, *merkle.Node) (bool, error) {
	return false, errors.New("disk full")
}

var _ = Describe("Generator", func() {
	var (
		ctx      context.Context
		calls    int
		received []llm.Message
		reply    *llm.Response
		failWith error
		provider llm.Provider
	)

	BeforeEach(func() {
		ctx = context.Background()
		calls = 0
		received = nil
		reply = &llm.Response{Model: "openai/gpt-4.1", Content: "Пост готов.", PromptTokens: 10, CompletionTokens: 20}
		failWith = nil
		provider = llm.ProviderFunc(func(_ context.Context, msgs []llm.Message) (*llm.Response, error) {
			calls++
			received = msgs
			if failWith != nil {
				return nil, failWith
			}
			return reply, nil
		})
	})

	It("returns the model's text", func() {
		g := postgen.New(postgen.Static(provider), zap.NewNop())

		res, err := g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес", Style: postgen.Professional})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Content).To(Equal("Пост готов."))
		Expect(res.Style).To(Equal(postgen.Professional))
		Expect(res.CompletionTokens).To(Equal(20))
		Expect(res.DraftHash).To(BeEmpty())

		Expect(calls).To(Equal(1))
		Expect(received).To(HaveLen(2))
		Expect(received[1].Content).To(ContainSubstring("профессиональном деловом стиле"))
	})

	It("does not call the model for invalid requests", func() {
		g := postgen.New(postgen.Static(provider), zap.NewNop())

		_, err := g.Generate(ctx, "user-1", postgen.Request{Name: "кот"})
		var verr *postgen.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(calls).To(Equal(0))
	})

	It("prefixes upstream failures", func() {
		failWith = errors.New("connection reset")
		g := postgen.New(postgen.Static(provider), zap.NewNop())

		_, err := g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес"})
		Expect(err).To(MatchError("Не удалось сгенерировать пост: connection reset"))
		Expect(errors.Is(err, failWith)).To(BeTrue())

		var gerr *postgen.GenerationError
		Expect(errors.As(err, &gerr)).To(BeTrue())
	})

	It("reports a missing provider as a generation failure", func() {
		missing := errors.New("OPENAI_API_KEY is not configured")
		g := postgen.New(func() (llm.Provider, error) { return nil, missing }, zap.NewNop())

		_, err := g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес"})
		Expect(err).To(MatchError("Не удалось сгенерировать пост: OPENAI_API_KEY is not configured"))
	})

	It("enforces the per-user rate limit before calling the model", func() {
		g := postgen.New(postgen.Static(provider), zap.NewNop(), postgen.WithLimiter(ratelimit.New(1)))

		_, err := g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес"})
		Expect(err).NotTo(HaveOccurred())

		_, err = g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес"})
		Expect(err).To(MatchError(postgen.ErrRateLimited))
		Expect(calls).To(Equal(1))

		_, err = g.Generate(ctx, "user-2", postgen.Request{Name: "осенний лес"})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("draft lineage", func() {
		var drafts *inmemory.Driver

		BeforeEach(func() {
			drafts = inmemory.NewDriver()
		})

		It("stores system, user and assistant nodes", func() {
			g := postgen.New(postgen.Static(provider), zap.NewNop(), postgen.WithDrafts(drafts))

			res, err := g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.DraftHash).NotTo(BeEmpty())

			path, err := drafts.DraftAncestry(ctx, res.DraftHash)
			Expect(err).NotTo(HaveOccurred())
			history := storage.Reverse(path)
			Expect(history).To(HaveLen(3))
			Expect(history[0].Bucket.Role).To(Equal("system"))
			Expect(history[1].Bucket.Role).To(Equal("user"))
			Expect(history[1].Bucket.Style).To(Equal("informal"))
			Expect(history[2].Bucket.Content).To(Equal("Пост готов."))
			Expect(history[2].Bucket.Model).To(Equal("openai/gpt-4.1"))
		})

		It("branches different drafts from the same prompt", func() {
			g := postgen.New(postgen.Static(provider), zap.NewNop(), postgen.WithDrafts(drafts))

			first, err := g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес"})
			Expect(err).NotTo(HaveOccurred())

			reply = &llm.Response{Model: "openai/gpt-4.1", Content: "Другой пост."}
			second, err := g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес"})
			Expect(err).NotTo(HaveOccurred())

			Expect(first.DraftHash).NotTo(Equal(second.DraftHash))

			a, err := drafts.GetDraft(ctx, first.DraftHash)
			Expect(err).NotTo(HaveOccurred())
			b, err := drafts.GetDraft(ctx, second.DraftHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(*a.ParentHash).To(Equal(*b.ParentHash))
		})

		It("still returns the draft when storage fails", func() {
			g := postgen.New(postgen.Static(provider), zap.NewNop(), postgen.WithDrafts(failingDrafts{}))

			res, err := g.Generate(ctx, "user-1", postgen.Request{Name: "осенний лес"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Content).To(Equal("Пост готов."))
			Expect(res.DraftHash).To(BeEmpty())
		})
	})
})
