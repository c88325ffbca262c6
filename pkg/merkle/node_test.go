package merkle_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/inkwell/pkg/merkle"
)

func userBucket(text string) merkle.Bucket {
	return merkle.Bucket{Role: "user", Content: text}
}

var _ = Describe("Node", func() {
	Describe("NewNode", func() {
		Context("when creating a root node", func() {
			It("keeps the bucket", func() {
				b := userBucket("hello world")
				node := merkle.NewNode(b, nil)

				Expect(node.Bucket).To(Equal(b))
				Expect(node.ParentHash).To(BeNil())
			})

			It("produces consistent hashes for the same bucket", func() {
				node1 := merkle.NewNode(userBucket("same"), nil)
				node2 := merkle.NewNode(userBucket("same"), nil)

				Expect(node1.Hash).To(Equal(node2.Hash))
			})

			It("produces different hashes for different content, role or style", func() {
				a := merkle.NewNode(userBucket("A"), nil)
				b := merkle.NewNode(userBucket("B"), nil)
				c := merkle.NewNode(merkle.Bucket{Role: "assistant", Content: "A"}, nil)
				d := merkle.NewNode(merkle.Bucket{Role: "user", Content: "A", Style: "humorous"}, nil)

				Expect(a.Hash).NotTo(Equal(b.Hash))
				Expect(a.Hash).NotTo(Equal(c.Hash))
				Expect(a.Hash).NotTo(Equal(d.Hash))
			})
		})

		Context("when creating a child node", func() {
			var parent *merkle.Node

			BeforeEach(func() {
				parent = merkle.NewNode(userBucket("parent"), nil)
			})

			It("links the child to the parent", func() {
				child := merkle.NewNode(userBucket("child"), parent)

				Expect(child.ParentHash).NotTo(BeNil())
				Expect(*child.ParentHash).To(Equal(parent.Hash))
			})

			It("produces different hashes for the same bucket under different parents", func() {
				other := merkle.NewNode(userBucket("other parent"), nil)
				child1 := merkle.NewNode(userBucket("same"), parent)
				child2 := merkle.NewNode(userBucket("same"), other)

				Expect(child1.Hash).NotTo(Equal(child2.Hash))
			})

			It("does not alias the parent's hash", func() {
				child := merkle.NewNode(userBucket("child"), parent)
				parent.Hash = "mutated"

				Expect(*child.ParentHash).NotTo(Equal("mutated"))
			})
		})
	})

	Describe("Chain", func() {
		It("links buckets oldest first", func() {
			nodes := merkle.Chain(
				merkle.Bucket{Role: "system", Content: "prompt"},
				userBucket("topic"),
				merkle.Bucket{Role: "assistant", Content: "draft"},
			)

			Expect(nodes).To(HaveLen(3))
			Expect(nodes[0].ParentHash).To(BeNil())
			Expect(*nodes[1].ParentHash).To(Equal(nodes[0].Hash))
			Expect(*nodes[2].ParentHash).To(Equal(nodes[1].Hash))
		})

		It("shares the prompt prefix between two drafts", func() {
			system := merkle.Bucket{Role: "system", Content: "prompt"}
			first := merkle.Chain(system, userBucket("topic"), merkle.Bucket{Role: "assistant", Content: "one"})
			second := merkle.Chain(system, userBucket("topic"), merkle.Bucket{Role: "assistant", Content: "two"})

			Expect(first[1].Hash).To(Equal(second[1].Hash))
			Expect(first[2].Hash).NotTo(Equal(second[2].Hash))
			Expect(*first[2].ParentHash).To(Equal(*second[2].ParentHash))
		})

		It("returns nothing for no buckets", func() {
			Expect(merkle.Chain()).To(BeEmpty())
		})
	})

	Describe("Verify", func() {
		It("accepts an untouched node and rejects a tampered one", func() {
			node := merkle.NewNode(userBucket("test"), nil)
			Expect(node.Verify()).To(BeTrue())

			node.Bucket.Content = "tampered"
			Expect(node.Verify()).To(BeFalse())
		})
	})

	Describe("Hash computation", func() {
		It("produces a SHA-256 hex string", func() {
			node := merkle.NewNode(userBucket("test"), nil)

			Expect(node.Hash).To(MatchRegexp("^[a-f0-9]{64}$"))
		})
	})
})
