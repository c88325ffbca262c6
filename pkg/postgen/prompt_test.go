package postgen_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/inkwell/pkg/llm"
	"github.com/papercomputeco/inkwell/pkg/postgen"
)

var _ = Describe("Request", func() {
	Describe("Validate", func() {
		It("rejects topics shorter than five characters", func() {
			req := postgen.Request{Name: "кот"}
			err := req.Validate()

			var verr *postgen.ValidationError
			Expect(err).To(BeAssignableToTypeOf(verr))
			Expect(err.Error()).To(Equal("Тема поста должна содержать минимум 5 символов"))
		})

		It("counts characters, not bytes", func() {
			req := postgen.Request{Name: "котик"}
			Expect(req.Validate()).To(Succeed())
		})

		It("counts characters outside the BMP as two, like a browser", func() {
			req := postgen.Request{Name: "🔥🔥🔥"}
			Expect(req.Validate()).To(Succeed())

			req = postgen.Request{Name: "🔥🔥"}
			Expect(req.Validate()).To(MatchError("Тема поста должна содержать минимум 5 символов"))

			req = postgen.Request{Name: "🔥кот"}
			Expect(req.Validate()).To(Succeed())
		})

		It("defaults the style to informal", func() {
			req := postgen.Request{Name: "осенний лес"}
			Expect(req.Validate()).To(Succeed())
			Expect(req.Style).To(Equal(postgen.Informal))
		})

		It("rejects unknown styles", func() {
			req := postgen.Request{Name: "осенний лес", Style: "poetic"}
			err := req.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("poetic"))
		})
	})

	Describe("Messages", func() {
		DescribeTable("builds the system and user turns",
			func(style postgen.Style, phrase string) {
				req := postgen.Request{Name: "утренний кофе", Style: style}
				Expect(req.Validate()).To(Succeed())

				msgs := req.Messages()
				Expect(msgs).To(HaveLen(2))
				Expect(msgs[0].Role).To(Equal(llm.RoleSystem))
				Expect(msgs[0].Content).To(Equal(postgen.SystemPrompt))
				Expect(msgs[1].Role).To(Equal(llm.RoleUser))
				Expect(msgs[1].Content).To(Equal(`Напиши пост на тему: "утренний кофе" в ` + phrase + "."))
			},
			Entry("informal", postgen.Informal, "неформальном разговорном стиле"),
			Entry("professional", postgen.Professional, "профессиональном деловом стиле"),
			Entry("humorous", postgen.Humorous, "юмористическом и легком стиле"),
		)

		It("keeps quotes in the topic verbatim", func() {
			req := postgen.Request{Name: `книга "Мастер"`, Style: postgen.Humorous}
			Expect(req.UserPrompt()).To(ContainSubstring(`"книга "Мастер""`))
		})
	})

	Describe("SystemPrompt", func() {
		It("is trimmed and asks for Russian", func() {
			Expect(postgen.SystemPrompt).To(HavePrefix("Ты — блогер."))
			Expect(postgen.SystemPrompt).To(HaveSuffix("Пиши на русском языке."))
		})
	})
})

var _ = Describe("Style", func() {
	It("parses every listed style", func() {
		for _, s := range postgen.Styles {
			parsed, err := postgen.ParseStyle(string(s))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(s))
			Expect(s.Label()).NotTo(BeEmpty())
			Expect(s.Description()).NotTo(BeEmpty())
		}
	})
})
