// Package storagetest holds ginkgo specs every storage.Driver must pass.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/inkwell/pkg/merkle"
	"github.com/papercomputeco/inkwell/pkg/storage"
)

// DescribeDriver registers the shared driver specs. newDriver is called before
// each spec and the driver is closed after it.
func DescribeDriver(name string, newDriver func() storage.Driver) bool {
	return Describe(name, func() {
		var (
			driver storage.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
			Expect(driver.Migrate(ctx)).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		Describe("users", func() {
			It("creates a user once per email", func() {
				u1, err := driver.UpsertUser(ctx, "anna@example.com", "Анна")
				Expect(err).NotTo(HaveOccurred())
				Expect(u1.ID).NotTo(BeEmpty())

				u2, err := driver.UpsertUser(ctx, "anna@example.com", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(u2.ID).To(Equal(u1.ID))
				Expect(u2.Name).To(Equal("Анна"))

				u3, err := driver.UpsertUser(ctx, "anna@example.com", "Anna K")
				Expect(err).NotTo(HaveOccurred())
				Expect(u3.ID).To(Equal(u1.ID))
				Expect(u3.Name).To(Equal("Anna K"))

				users, err := driver.ListUsers(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(users).To(HaveLen(1))
			})

			It("creates distinct users without email", func() {
				u1, err := driver.UpsertUser(ctx, "", "one")
				Expect(err).NotTo(HaveOccurred())
				u2, err := driver.UpsertUser(ctx, "", "two")
				Expect(err).NotTo(HaveOccurred())
				Expect(u1.ID).NotTo(Equal(u2.ID))
			})

			It("gets a user by id", func() {
				u, err := driver.UpsertUser(ctx, "bob@example.com", "Bob")
				Expect(err).NotTo(HaveOccurred())

				got, err := driver.GetUser(ctx, u.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Email).To(Equal("bob@example.com"))
				Expect(got.Name).To(Equal("Bob"))
			})

			It("returns ErrNotFound for unknown users", func() {
				_, err := driver.GetUser(ctx, "missing")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("sessions", func() {
			var user *storage.User

			BeforeEach(func() {
				var err error
				user, err = driver.UpsertUser(ctx, "s@example.com", "S")
				Expect(err).NotTo(HaveOccurred())
			})

			It("resolves a fresh token", func() {
				s, err := driver.CreateSession(ctx, user.ID, time.Hour)
				Expect(err).NotTo(HaveOccurred())
				Expect(s.Token).NotTo(BeEmpty())

				got, err := driver.SessionByToken(ctx, s.Token)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.UserID).To(Equal(user.ID))
			})

			It("issues a different token every time", func() {
				s1, err := driver.CreateSession(ctx, user.ID, time.Hour)
				Expect(err).NotTo(HaveOccurred())
				s2, err := driver.CreateSession(ctx, user.ID, time.Hour)
				Expect(err).NotTo(HaveOccurred())
				Expect(s1.Token).NotTo(Equal(s2.Token))
			})

			It("treats expired tokens as not found", func() {
				s, err := driver.CreateSession(ctx, user.ID, -time.Minute)
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.SessionByToken(ctx, s.Token)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("forgets deleted tokens", func() {
				s, err := driver.CreateSession(ctx, user.ID, time.Hour)
				Expect(err).NotTo(HaveOccurred())
				Expect(driver.DeleteSession(ctx, s.Token)).To(Succeed())

				_, err = driver.SessionByToken(ctx, s.Token)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("rejects sessions for unknown users", func() {
				_, err := driver.CreateSession(ctx, "missing", time.Hour)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("posts", func() {
			var alice, bob *storage.User

			BeforeEach(func() {
				var err error
				alice, err = driver.UpsertUser(ctx, "alice@example.com", "Alice")
				Expect(err).NotTo(HaveOccurred())
				bob, err = driver.UpsertUser(ctx, "bob@example.com", "Bob")
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns nil when a user has no posts", func() {
				latest, err := driver.LatestPost(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(latest).To(BeNil())
			})

			It("returns the most recent post", func() {
				_, err := driver.CreatePost(ctx, alice.ID, "first", "one")
				Expect(err).NotTo(HaveOccurred())
				second, err := driver.CreatePost(ctx, alice.ID, "second", "two")
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.CreatePost(ctx, bob.ID, "bob's", "three")
				Expect(err).NotTo(HaveOccurred())

				latest, err := driver.LatestPost(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(latest.ID).To(Equal(second.ID))
				Expect(latest.Name).To(Equal("second"))
				Expect(latest.Content).To(Equal("two"))
			})

			It("lists a user's posts newest first", func() {
				for _, name := range []string{"a", "b", "c"} {
					_, err := driver.CreatePost(ctx, alice.ID, name, "")
					Expect(err).NotTo(HaveOccurred())
				}
				_, err := driver.CreatePost(ctx, bob.ID, "x", "")
				Expect(err).NotTo(HaveOccurred())

				posts, err := driver.PostsByUser(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(posts).To(HaveLen(3))
				Expect(posts[0].Name).To(Equal("c"))
				Expect(posts[2].Name).To(Equal("a"))
				for _, p := range posts {
					Expect(p.CreatedByID).To(Equal(alice.ID))
				}

				n, err := driver.CountPosts(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(int64(4)))
			})

			It("rejects posts for unknown users", func() {
				_, err := driver.CreatePost(ctx, "missing", "name", "content")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("drafts", func() {
			var chain []*merkle.Node

			BeforeEach(func() {
				chain = merkle.Chain(
					merkle.Bucket{Role: "system", Content: "prompt"},
					merkle.Bucket{Role: "user", Content: "topic", Style: "informal"},
					merkle.Bucket{Role: "assistant", Content: "draft", Model: "m", Style: "informal"},
				)
			})

			It("stores and retrieves a node", func() {
				isNew, err := driver.PutDraft(ctx, chain[0])
				Expect(err).NotTo(HaveOccurred())
				Expect(isNew).To(BeTrue())

				got, err := driver.GetDraft(ctx, chain[0].Hash)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Bucket).To(Equal(chain[0].Bucket))
				Expect(got.ParentHash).To(BeNil())
				Expect(got.Verify()).To(BeTrue())
			})

			It("is idempotent for duplicate puts", func() {
				_, err := driver.PutDraft(ctx, chain[0])
				Expect(err).NotTo(HaveOccurred())

				isNew, err := driver.PutDraft(ctx, chain[0])
				Expect(err).NotTo(HaveOccurred())
				Expect(isNew).To(BeFalse())
			})

			It("rejects nil nodes", func() {
				_, err := driver.PutDraft(ctx, nil)
				Expect(err).To(MatchError(storage.ErrNilNode))
			})

			It("returns ErrNotFound for unknown hashes", func() {
				_, err := driver.GetDraft(ctx, "nonexistent")
				Expect(storage.IsNotFound(err)).To(BeTrue())

				_, err = driver.DraftAncestry(ctx, "nonexistent")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("walks the ancestry from head to root", func() {
				for _, n := range chain {
					_, err := driver.PutDraft(ctx, n)
					Expect(err).NotTo(HaveOccurred())
				}

				path, err := driver.DraftAncestry(ctx, chain[2].Hash)
				Expect(err).NotTo(HaveOccurred())
				Expect(path).To(HaveLen(3))
				Expect(path[0].Hash).To(Equal(chain[2].Hash))
				Expect(path[1].Hash).To(Equal(chain[1].Hash))
				Expect(path[2].Hash).To(Equal(chain[0].Hash))
				Expect(*path[0].ParentHash).To(Equal(chain[1].Hash))
			})

			It("reports a broken chain", func() {
				_, err := driver.PutDraft(ctx, chain[2])
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.DraftAncestry(ctx, chain[2].Hash)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})
	})
}
