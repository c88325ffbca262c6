// Package storage defines the persistence layer for users, sessions, posts and
// draft lineage. Implementations live in the inmemory and sqlite subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/papercomputeco/inkwell/pkg/merkle"
)

// UnnamedUser is shown for users with neither a name nor an email.
const UnnamedUser = "Без имени"

// User is an account that can own posts.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName falls back from name to email to UnnamedUser.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return UnnamedUser
}

// Session binds an opaque token to a user until it expires.
type Session struct {
	Token   string    `json:"token"`
	UserID  string    `json:"user_id"`
	Expires time.Time `json:"expires"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.Expires)
}

// Post is a published blog post.
type Post struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Content     string    `json:"content"`
	CreatedByID string    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Driver is implemented by every storage backend.
type Driver interface {
	// Migrate creates the schema. It is safe to call repeatedly.
	Migrate(ctx context.Context) error

	UpsertUser(ctx context.Context, email, name string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)

	// CreateSession issues a new random token for userID valid for ttl.
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Session, error)
	// SessionByToken returns ErrNotFound for unknown and expired tokens.
	SessionByToken(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error

	CreatePost(ctx context.Context, userID, name, content string) (*Post, error)
	// LatestPost returns nil without error when the user has no posts.
	LatestPost(ctx context.Context, userID string) (*Post, error)
	// PostsByUser returns the user's posts, newest first.
	PostsByUser(ctx context.Context, userID string) ([]*Post, error)
	CountPosts(ctx context.Context) (int64, error)

	// PutDraft stores a node and reports whether it was new.
	PutDraft(ctx context.Context, node *merkle.Node) (bool, error)
	GetDraft(ctx context.Context, hash string) (*merkle.Node, error)
	// DraftAncestry returns the path from hash back to its root (node first).
	DraftAncestry(ctx context.Context, hash string) ([]*merkle.Node, error)

	Close() error
}

// ErrNilNode is returned when storing a nil draft node.
var ErrNilNode = errors.New("cannot store nil node")

// ErrNotFound is returned when a record doesn't exist.
type ErrNotFound struct {
	Kind string
	Key  string
}

func (e ErrNotFound) Error() string {
	if e.Key == "" {
		return e.Kind + " not found"
	}
	return e.Kind + " not found: " + e.Key
}

// IsNotFound reports whether err is, or wraps, an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// Reverse returns the nodes in the opposite order.
func Reverse(nodes []*merkle.Node) []*merkle.Node {
	out := make([]*merkle.Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}
