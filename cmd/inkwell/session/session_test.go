package sessioncmder

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil/cmdtest"
	"github.com/papercomputeco/inkwell/pkg/storage/sqlite"
)

var tokenLine = regexp.MustCompile(`(?m)^Token:\s+(\S+)$`)

var _ = Describe("Session Create Command", func() {
	var (
		ctx    context.Context
		dbPath string
	)

	BeforeEach(func() {
		cmdtest.IsolateEnv()
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "inkwell.db")
	})

	create := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewSessionCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"create", "--sqlite", dbPath}, args...))
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	It("prints a token that resolves to the user", func() {
		out, err := create("--email", "anna@example.com", "--name", "Анна")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("User:    Анна"))

		m := tokenLine.FindStringSubmatch(out)
		Expect(m).To(HaveLen(2))

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		session, err := d.SessionByToken(ctx, m[1])
		Expect(err).NotTo(HaveOccurred())

		user, err := d.GetUser(ctx, session.UserID)
		Expect(err).NotTo(HaveOccurred())
		Expect(user.Email).To(Equal("anna@example.com"))
		Expect(session.Expires).To(BeTemporally("~", time.Now().Add(30*24*time.Hour), time.Minute))
	})

	It("honors --ttl", func() {
		out, err := create("--email", "ttl@example.com", "--ttl", "1h")
		Expect(err).NotTo(HaveOccurred())

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		session, err := d.SessionByToken(ctx, tokenLine.FindStringSubmatch(out)[1])
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Expires).To(BeTemporally("~", time.Now().Add(time.Hour), time.Minute))
	})

	It("reuses the user for the same email", func() {
		_, err := create("--email", "same@example.com")
		Expect(err).NotTo(HaveOccurred())
		_, err = create("--email", "same@example.com")
		Expect(err).NotTo(HaveOccurred())

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		users, err := d.ListUsers(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(1))
	})

	It("requires --email", func() {
		_, err := create()
		Expect(err).To(HaveOccurred())
	})
})
