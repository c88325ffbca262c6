// Package sqlite is a storage.Driver backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/papercomputeco/inkwell/pkg/merkle"
	"github.com/papercomputeco/inkwell/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT,
	created_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email IS NOT NULL;

CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	created_by_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_name ON posts(name);
CREATE INDEX IF NOT EXISTS idx_posts_created_by ON posts(created_by_id, created_at);

CREATE TABLE IF NOT EXISTS drafts (
	hash TEXT PRIMARY KEY,
	parent_hash TEXT,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	style TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_drafts_parent ON drafts(parent_hash);
`

// Driver implements storage.Driver on SQLite.
type Driver struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver opens (creating if needed) the database at dbPath and migrates it.
// Use ":memory:" for a throwaway database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Driver{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}

	if err := d.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// Migrate creates the schema if it doesn't exist.
func (d *Driver) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (d *Driver) UpsertUser(ctx context.Context, email, name string) (*storage.User, error) {
	if email != "" {
		u, err := d.scanUser(d.db.QueryRowContext(ctx,
			`SELECT id, name, email, created_at FROM users WHERE email = ?`, email))
		switch {
		case err == nil:
			if name != "" && name != u.Name {
				if _, err := d.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, u.ID); err != nil {
					return nil, fmt.Errorf("updating user: %w", err)
				}
				u.Name = name
			}
			return u, nil
		case !storage.IsNotFound(err):
			return nil, err
		}
	}

	u := &storage.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: d.now(),
	}

	var emailCol any
	if email != "" {
		emailCol = email
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, emailCol, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (d *Driver) GetUser(ctx context.Context, id string) (*storage.User, error) {
	u, err := d.scanUser(d.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`, id))
	if storage.IsNotFound(err) {
		return nil, storage.ErrNotFound{Kind: "user", Key: id}
	}
	return u, err
}

func (d *Driver) ListUsers(ctx context.Context) ([]*storage.User, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, email, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*storage.User
	for rows.Next() {
		u, err := d.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (d *Driver) scanUser(row scanner) (*storage.User, error) {
	var u storage.User
	var email sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &email, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound{Kind: "user"}
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Email = email.String
	return &u, nil
}

func (d *Driver) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*storage.Session, error) {
	if _, err := d.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	s := &storage.Session{
		Token:   uuid.NewString(),
		UserID:  userID,
		Expires: d.now().Add(ttl),
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.Expires)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return s, nil
}

func (d *Driver) SessionByToken(ctx context.Context, token string) (*storage.Session, error) {
	var s storage.Session
	err := d.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires FROM sessions WHERE token = ?`, token,
	).Scan(&s.Token, &s.UserID, &s.Expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{Kind: "session"}
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if s.Expired(d.now()) {
		return nil, storage.ErrNotFound{Kind: "session"}
	}
	return &s, nil
}

func (d *Driver) DeleteSession(ctx context.Context, token string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (d *Driver) CreatePost(ctx context.Context, userID, name, content string) (*storage.Post, error) {
	if _, err := d.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := d.now()
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO posts (name, content, created_by_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, content, userID, now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading post id: %w", err)
	}

	return &storage.Post{
		ID:          id,
		Name:        name,
		Content:     content,
		CreatedByID: userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (d *Driver) LatestPost(ctx context.Context, userID string) (*storage.Post, error) {
	var p storage.Post
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, content, created_by_id, created_at, updated_at
		FROM posts WHERE created_by_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, userID,
	).Scan(&p.ID, &p.Name, &p.Content, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest post: %w", err)
	}
	return &p, nil
}

func (d *Driver) PostsByUser(ctx context.Context, userID string) ([]*storage.Post, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, content, created_by_id, created_at, updated_at
		FROM posts WHERE created_by_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var posts []*storage.Post
	for rows.Next() {
		var p storage.Post
		if err := rows.Scan(&p.ID, &p.Name, &p.Content, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

func (d *Driver) CountPosts(ctx context.Context) (int64, error) {
	var n int64
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting posts: %w", err)
	}
	return n, nil
}

func (d *Driver) PutDraft(ctx context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, storage.ErrNilNode
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO drafts (hash, parent_hash, role, content, model, style)
		VALUES (?, ?, ?, ?, ?, ?)`,
		node.Hash, node.ParentHash, node.Bucket.Role, node.Bucket.Content, node.Bucket.Model, node.Bucket.Style)
	if err != nil {
		return false, fmt.Errorf("storing draft node: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storing draft node: %w", err)
	}
	return n > 0, nil
}

func (d *Driver) GetDraft(ctx context.Context, hash string) (*merkle.Node, error) {
	n, err := scanDraft(d.db.QueryRowContext(ctx,
		`SELECT hash, parent_hash, role, content, model, style FROM drafts WHERE hash = ?`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{Kind: "draft", Key: hash}
	}
	return n, err
}

// DraftAncestry walks parent links with a recursive CTE.
func (d *Driver) DraftAncestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	rows, err := d.db.QueryContext(ctx, `
		WITH RECURSIVE ancestry(hash, parent_hash, role, content, model, style, depth) AS (
			SELECT hash, parent_hash, role, content, model, style, 0
			FROM drafts WHERE hash = ?
			UNION ALL
			SELECT d.hash, d.parent_hash, d.role, d.content, d.model, d.style, a.depth + 1
			FROM drafts d JOIN ancestry a ON d.hash = a.parent_hash
		)
		SELECT hash, parent_hash, role, content, model, style FROM ancestry ORDER BY depth`, hash)
	if err != nil {
		return nil, fmt.Errorf("querying draft ancestry: %w", err)
	}
	defer rows.Close()

	var path []*merkle.Node
	for rows.Next() {
		n, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		path = append(path, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying draft ancestry: %w", err)
	}

	if len(path) == 0 {
		return nil, storage.ErrNotFound{Kind: "draft", Key: hash}
	}
	if last := path[len(path)-1]; last.ParentHash != nil {
		return nil, storage.ErrNotFound{Kind: "draft", Key: *last.ParentHash}
	}
	return path, nil
}

func scanDraft(row scanner) (*merkle.Node, error) {
	var n merkle.Node
	var parent sql.NullString
	err := row.Scan(&n.Hash, &parent, &n.Bucket.Role, &n.Bucket.Content, &n.Bucket.Model, &n.Bucket.Style)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning draft node: %w", err)
	}
	if parent.Valid {
		p := parent.String
		n.ParentHash = &p
	}
	return &n, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}
