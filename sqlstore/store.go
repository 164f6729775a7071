// Package sqlstore persists posts, categories and tags in SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/eringen/pubapi/post"
)

// Store wraps a SQLite database and implements post.Store.
type Store struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so that every pooled connection gets them;
	// foreign_keys in particular is per connection. Immediate transactions
	// make concurrent writers wait on busy_timeout instead of failing.
	dsn := "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    image TEXT,
    content TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 0,
    category_id INTEGER NOT NULL REFERENCES categories(id),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS post_tags (
    post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (post_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_posts_published ON posts(published);
CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category_id);
CREATE INDEX IF NOT EXISTS idx_post_tags_tag ON post_tags(tag_id);
`)
	return err
}

const selectPost = `SELECT p.id, p.title, p.slug, p.image, p.content, p.published,
       p.created_at, p.updated_at, c.id, c.name
FROM posts p
JOIN categories c ON c.id = p.category_id`

// FindPosts returns posts ordered by id, optionally filtered by publication
// state, with categories and tags loaded.
func (s *Store) FindPosts(ctx context.Context, q post.Query) ([]post.Post, error) {
	query := selectPost
	var args []any
	if q.Published != nil {
		query += ` WHERE p.published = ?`
		args = append(args, boolToInt(*q.Published))
	}
	query += ` ORDER BY p.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachTags(ctx, s.db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FindPost returns the post with the given slug or post.ErrNotFound.
func (s *Store) FindPost(ctx context.Context, slug string) (post.Post, error) {
	return getPost(ctx, s.db, `p.slug = ?`, slug)
}

// CreatePost inserts the post and its tag links in one transaction.
func (s *Store) CreatePost(ctx context.Context, np post.NewPost) (post.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return post.Post{}, err
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	res, err := tx.ExecContext(ctx,
		`INSERT INTO posts (title, slug, image, content, published, category_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		np.Title, np.Slug, np.Image, np.Content, boolToInt(np.Published), np.CategoryID, now, now)
	if err != nil {
		return post.Post{}, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return post.Post{}, err
	}
	if err := connectTags(ctx, tx, id, np.TagIDs); err != nil {
		return post.Post{}, err
	}
	p, err := getPost(ctx, tx, `p.id = ?`, id)
	if err != nil {
		return post.Post{}, err
	}
	if err := tx.Commit(); err != nil {
		return post.Post{}, err
	}
	return p, nil
}

// UpdatePost applies the patch to the post currently stored under slug. The
// row is matched by slug inside the transaction, so a post deleted since the
// caller looked it up yields post.ErrNotFound.
func (s *Store) UpdatePost(ctx context.Context, slug string, p post.Patch) (post.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return post.Post{}, err
	}
	defer tx.Rollback()

	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now())}
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Slug != nil {
		sets = append(sets, "slug = ?")
		args = append(args, *p.Slug)
	}
	if p.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, *p.Image)
	}
	if p.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *p.Content)
	}
	if p.Published != nil {
		sets = append(sets, "published = ?")
		args = append(args, boolToInt(*p.Published))
	}
	if p.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *p.CategoryID)
	}
	args = append(args, slug)

	var id int64
	err = tx.QueryRowContext(ctx,
		`UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE slug = ? RETURNING id`, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, classify(err)
	}
	if err := disconnectTags(ctx, tx, id, p.DisconnectTags); err != nil {
		return post.Post{}, err
	}
	if err := connectTags(ctx, tx, id, p.ConnectTags); err != nil {
		return post.Post{}, err
	}
	updated, err := getPost(ctx, tx, `p.id = ?`, id)
	if err != nil {
		return post.Post{}, err
	}
	if err := tx.Commit(); err != nil {
		return post.Post{}, err
	}
	return updated, nil
}

// DeletePost removes a post by slug. Tag links go with it.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return post.ErrNotFound
	}
	return nil
}

// EnsureCategory returns the category with the given name, creating it if needed.
func (s *Store) EnsureCategory(ctx context.Context, name string) (post.Category, error) {
	id, err := s.ensureNamed(ctx, "categories", name)
	return post.Category{ID: id, Name: name}, err
}

// EnsureTag returns the tag with the given name, creating it if needed.
func (s *Store) EnsureTag(ctx context.Context, name string) (post.Tag, error) {
	id, err := s.ensureNamed(ctx, "tags", name)
	return post.Tag{ID: id, Name: name}, err
}

// ensureNamed upserts into categories or tags. table is never user input.
func (s *Store) ensureNamed(ctx context.Context, table, name string) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO `+table+` (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	return id, err
}

func getPost(ctx context.Context, q queryer, where string, arg any) (post.Post, error) {
	p, err := scanPost(q.QueryRowContext(ctx, selectPost+` WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	posts := []post.Post{p}
	if err := attachTags(ctx, q, posts); err != nil {
		return post.Post{}, err
	}
	return posts[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (post.Post, error) {
	var (
		p                post.Post
		image            sql.NullString
		published        int
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &image, &p.Content, &published,
		&created, &updated, &p.Category.ID, &p.Category.Name); err != nil {
		return post.Post{}, err
	}
	if image.Valid {
		p.Image = &image.String
	}
	p.Published = published == 1
	p.CategoryID = p.Category.ID
	p.Tags = []post.Tag{}
	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return post.Post{}, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return post.Post{}, err
	}
	return p, nil
}

// attachTags loads the tags of every post in posts with a single query.
func attachTags(ctx context.Context, q queryer, posts []post.Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[int64]int, len(posts))
	args := make([]any, len(posts))
	for i, p := range posts {
		index[p.ID] = i
		args[i] = p.ID
	}
	rows, err := q.QueryContext(ctx, `SELECT pt.post_id, t.id, t.name
FROM post_tags pt
JOIN tags t ON t.id = pt.tag_id
WHERE pt.post_id IN (`+placeholders(len(args))+`)
ORDER BY pt.post_id, t.id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var postID int64
		var t post.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name); err != nil {
			return err
		}
		i := index[postID]
		posts[i].Tags = append(posts[i].Tags, t)
	}
	return rows.Err()
}

func connectTags(ctx context.Context, tx *sql.Tx, postID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		// OR IGNORE covers an existing link; it does not suppress foreign key errors.
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, tagID); err != nil {
			return classify(err)
		}
	}
	return nil
}

func disconnectTags(ctx context.Context, tx *sql.Tx, postID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ? AND tag_id = ?`, postID, tagID); err != nil {
			return err
		}
	}
	return nil
}

// classify maps SQLite constraint failures to post.ErrConstraint.
func classify(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: unknown category or tag", post.ErrConstraint)
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return fmt.Errorf("%w: slug already in use", post.ErrConstraint)
	default:
		return fmt.Errorf("%w: %s", post.ErrConstraint, se.Error())
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
