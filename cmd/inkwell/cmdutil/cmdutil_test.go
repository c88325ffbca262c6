package cmdutil_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil/cmdtest"
	"github.com/papercomputeco/inkwell/pkg/config"
	"github.com/papercomputeco/inkwell/pkg/llm/openai"
	"github.com/papercomputeco/inkwell/pkg/postgen"
)

var _ = Describe("Providers", func() {
	It("rebuilds the provider after Update", func() {
		cfg := config.Default()
		cfg.LLM.APIKey = "test-key"

		providers := cmdutil.NewProviders(&cfg)
		first, err := providers.Current()
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Model()).To(Equal(openai.DefaultModel))

		again, err := providers.Current()
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeIdenticalTo(first))

		cfg.LLM.Model = "openai/gpt-4.1-mini"
		providers.Update(&cfg)
		second, err := providers.Current()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Model()).To(Equal("openai/gpt-4.1-mini"))
	})

	It("reports a missing key until one is configured", func() {
		cfg := config.Default()
		providers := cmdutil.NewProviders(&cfg)

		_, err := providers.Factory()()
		Expect(err).To(MatchError(openai.ErrMissingAPIKey))

		cfg.LLM.APIKey = "test-key"
		providers.Update(&cfg)
		_, err = providers.Factory()()
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Env", func() {
	var (
		ctx    context.Context
		home   string
		mu     sync.Mutex
		models []string
	)

	BeforeEach(func() {
		cmdtest.IsolateEnv()
		ctx = context.Background()
		home = os.Getenv("HOME")
		models = nil

		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Model string `json:"model"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			models = append(models, body.Model)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-env",
				"object":  "chat.completion",
				"created": 1234567890,
				"model":   body.Model,
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": "пост", "refusal": ""},
					"logprobs":      nil,
				}},
			})
		}))
		DeferCleanup(upstream.Close)

		cmdtest.Setenv("OPENAI_API_KEY", "test-key")
		cmdtest.Setenv("INKWELL_LLM_BASE_URL", upstream.URL)
	})

	load := func() *cmdutil.Env {
		env, err := cmdutil.Load(ctx, &cobra.Command{}, filepath.Join(GinkgoT().TempDir(), "inkwell.db"), GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(env.Close)
		return env
	}

	It("records the default config path", func() {
		env := load()
		Expect(env.ConfigPath).To(Equal(filepath.Join(home, config.DirName, config.FileName)))
	})

	It("applies a reloaded limit and model to an existing generator", func() {
		cmdtest.Setenv("INKWELL_GENERATE_PER_MINUTE", "1")
		env := load()
		gen := env.NewGenerator(nil)

		req := postgen.Request{Name: "Осенний лес"}
		_, err := gen.Generate(ctx, "anna", req)
		Expect(err).NotTo(HaveOccurred())
		_, err = gen.Generate(ctx, "anna", req)
		Expect(err).To(MatchError(postgen.ErrRateLimited))

		cfg := *env.Config
		cfg.Limits.GeneratePerMinute = 0
		cfg.LLM.Model = "openai/gpt-4.1-mini"
		env.Reload(&cfg)

		result, err := gen.Generate(ctx, "anna", req)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Model).To(Equal("openai/gpt-4.1-mini"))

		mu.Lock()
		defer mu.Unlock()
		Expect(models).To(Equal([]string{openai.DefaultModel, "openai/gpt-4.1-mini"}))
	})
})
