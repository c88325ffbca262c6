package userscmder

import (
	"bytes"
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil/cmdtest"
	"github.com/papercomputeco/inkwell/pkg/storage/sqlite"
)

var _ = Describe("Users Command", func() {
	var (
		ctx    context.Context
		dbPath string
	)

	BeforeEach(func() {
		cmdtest.IsolateEnv()
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "inkwell.db")
	})

	run := func() string {
		var out bytes.Buffer
		cmd := NewUsersCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--sqlite", dbPath})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())
		return out.String()
	}

	It("reports an empty database", func() {
		Expect(run()).To(ContainSubstring("Пользователи не найдены"))
	})

	It("lists users with display names", func() {
		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		named, err := d.UpsertUser(ctx, "anna@example.com", "Анна")
		Expect(err).NotTo(HaveOccurred())
		unnamed, err := d.UpsertUser(ctx, "boris@example.com", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Close()).To(Succeed())

		out := run()
		Expect(out).To(ContainSubstring(named.ID + "  Анна"))
		Expect(out).To(ContainSubstring(unnamed.ID + "  boris@example.com"))
	})
})
