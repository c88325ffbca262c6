// Package cmdtest holds ginkgo helpers shared by the command suites.
package cmdtest

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var inkwellEnv = []string{
	"OPENAI_API_KEY",
	"INKWELL_LLM_BASE_URL",
	"INKWELL_LLM_MODEL",
	"INKWELL_LISTEN",
	"INKWELL_DB",
	"INKWELL_GENERATE_PER_MINUTE",
}

// IsolateEnv points HOME at a temp dir and blanks inkwell's environment
// overrides for the current test.
func IsolateEnv() {
	Setenv("HOME", GinkgoT().TempDir())
	for _, k := range inkwellEnv {
		Setenv(k, "")
	}
}

// Setenv sets key for the current test and restores it afterwards.
func Setenv(key, value string) {
	old, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}
