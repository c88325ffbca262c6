// Package inmemory is a storage.Driver that keeps everything in process memory.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/inkwell/pkg/merkle"
	"github.com/papercomputeco/inkwell/pkg/storage"
)

// Driver is safe for concurrent use.
type Driver struct {
	mu sync.RWMutex

	users    map[string]*storage.User
	byEmail  map[string]string
	sessions map[string]*storage.Session
	posts    []*storage.Post
	drafts   map[string]*merkle.Node
	nextPost int64

	now func() time.Time
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates an empty Driver.
func NewDriver() *Driver {
	return &Driver{
		users:    make(map[string]*storage.User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*storage.Session),
		drafts:   make(map[string]*merkle.Node),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *Driver) Migrate(context.Context) error { return nil }

func (d *Driver) UpsertUser(_ context.Context, email, name string) (*storage.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if email != "" {
		if id, ok := d.byEmail[email]; ok {
			u := d.users[id]
			if name != "" {
				u.Name = name
			}
			cp := *u
			return &cp, nil
		}
	}

	u := &storage.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: d.now(),
	}
	d.users[u.ID] = u
	if email != "" {
		d.byEmail[email] = u.ID
	}

	cp := *u
	return &cp, nil
}

func (d *Driver) GetUser(_ context.Context, id string) (*storage.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, storage.ErrNotFound{Kind: "user", Key: id}
	}
	cp := *u
	return &cp, nil
}

func (d *Driver) ListUsers(context.Context) ([]*storage.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]*storage.User, 0, len(d.users))
	for _, u := range d.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (d *Driver) CreateSession(_ context.Context, userID string, ttl time.Duration) (*storage.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[userID]; !ok {
		return nil, storage.ErrNotFound{Kind: "user", Key: userID}
	}

	s := &storage.Session{
		Token:   uuid.NewString(),
		UserID:  userID,
		Expires: d.now().Add(ttl),
	}
	d.sessions[s.Token] = s

	cp := *s
	return &cp, nil
}

func (d *Driver) SessionByToken(_ context.Context, token string) (*storage.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sessions[token]
	if !ok || s.Expired(d.now()) {
		return nil, storage.ErrNotFound{Kind: "session"}
	}
	cp := *s
	return &cp, nil
}

func (d *Driver) DeleteSession(_ context.Context, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.sessions, token)
	return nil
}

func (d *Driver) CreatePost(_ context.Context, userID, name, content string) (*storage.Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[userID]; !ok {
		return nil, storage.ErrNotFound{Kind: "user", Key: userID}
	}

	d.nextPost++
	now := d.now()
	p := &storage.Post{
		ID:          d.nextPost,
		Name:        name,
		Content:     content,
		CreatedByID: userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	d.posts = append(d.posts, p)

	cp := *p
	return &cp, nil
}

func (d *Driver) LatestPost(ctx context.Context, userID string) (*storage.Post, error) {
	posts, err := d.PostsByUser(ctx, userID)
	if err != nil || len(posts) == 0 {
		return nil, err
	}
	return posts[0], nil
}

func (d *Driver) PostsByUser(_ context.Context, userID string) ([]*storage.Post, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var posts []*storage.Post
	for _, p := range d.posts {
		if p.CreatedByID == userID {
			cp := *p
			posts = append(posts, &cp)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (d *Driver) CountPosts(context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return int64(len(d.posts)), nil
}

func (d *Driver) PutDraft(_ context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, storage.ErrNilNode
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.drafts[node.Hash]; ok {
		return false, nil
	}
	d.drafts[node.Hash] = node
	return true, nil
}

func (d *Driver) GetDraft(_ context.Context, hash string) (*merkle.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n, ok := d.drafts[hash]
	if !ok {
		return nil, storage.ErrNotFound{Kind: "draft", Key: hash}
	}
	return n, nil
}

func (d *Driver) DraftAncestry(_ context.Context, hash string) ([]*merkle.Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var path []*merkle.Node
	current := hash
	for {
		n, ok := d.drafts[current]
		if !ok {
			return nil, storage.ErrNotFound{Kind: "draft", Key: current}
		}
		path = append(path, n)
		if n.ParentHash == nil {
			return path, nil
		}
		current = *n.ParentHash
	}
}

func (d *Driver) Close() error { return nil }
