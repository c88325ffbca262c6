package generatecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil/cmdtest"
	"github.com/papercomputeco/inkwell/pkg/storage/sqlite"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-cli",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "openai/gpt-4.1",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content, "refusal": ""},
			"logprobs":      nil,
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

var _ = Describe("Generate Command", func() {
	var (
		ctx      context.Context
		dbPath   string
		upstream *httptest.Server
		lastBody []byte
	)

	BeforeEach(func() {
		cmdtest.IsolateEnv()
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "inkwell.db")

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(completion("# Кофе\n\nТекст поста."))
		}))
		DeferCleanup(upstream.Close)

		cmdtest.Setenv("OPENAI_API_KEY", "test-key")
		cmdtest.Setenv("INKWELL_LLM_BASE_URL", upstream.URL)
	})

	run := func(args ...string) (string, string, error) {
		var out, errOut bytes.Buffer
		cmd := NewGenerateCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs(append([]string{"--sqlite", dbPath}, args...))
		err := cmd.ExecuteContext(ctx)
		return out.String(), errOut.String(), err
	}

	It("prints the generated draft", func() {
		out, _, err := run("Почему", "я", "перестал", "пить", "кофе")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("# Кофе\n\nТекст поста.\n"))
		Expect(string(lastBody)).To(ContainSubstring(`Напиши пост на тему: \"Почему я перестал пить кофе\" в неформальном разговорном стиле.`))
	})

	It("passes the style and records the draft lineage", func() {
		_, errOut, err := run("--style", "humorous", "--hash", "Мой кот и удалёнка")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(lastBody)).To(ContainSubstring("юмористическом и легком стиле"))
		Expect(errOut).To(HavePrefix("draft: "))

		hash := strings.TrimSpace(strings.TrimPrefix(errOut, "draft: "))

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		chain, err := d.DraftAncestry(ctx, hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(chain).To(HaveLen(3))
	})

	It("rejects short topics without calling the model", func() {
		lastBody = nil
		_, _, err := run("кот")
		Expect(err).To(MatchError("Тема поста должна содержать минимум 5 символов"))
		Expect(lastBody).To(BeNil())
	})

	It("prefixes failures when the key is missing", func() {
		cmdtest.Setenv("OPENAI_API_KEY", "")
		_, _, err := run("Тема без ключа")
		Expect(err).To(MatchError("Не удалось сгенерировать пост: OPENAI_API_KEY is not configured"))
	})
})
