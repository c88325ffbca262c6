package migratecmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil/cmdtest"
)

var _ = Describe("Migrate Command", func() {
	var dbPath string

	BeforeEach(func() {
		cmdtest.IsolateEnv()
		dbPath = filepath.Join(GinkgoT().TempDir(), "nested", "inkwell.db")
	})

	It("creates the database and reports it", func() {
		var out bytes.Buffer
		cmd := NewMigrateCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--sqlite", dbPath})

		Expect(cmd.ExecuteContext(context.Background())).To(Succeed())
		Expect(out.String()).To(Equal("Database " + dbPath + " migrated\n"))

		_, err := os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("can be run twice", func() {
		for range 2 {
			cmd := NewMigrateCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs([]string{"--sqlite", dbPath})
			Expect(cmd.ExecuteContext(context.Background())).To(Succeed())
		}
	})
})
