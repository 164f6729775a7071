// Package gormstore persists posts, categories and tags in PostgreSQL
// through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/eringen/pubapi/post"
)

// Store implements post.Store on top of a *gorm.DB.
type Store struct {
	db *gorm.DB
}

// New connects to PostgreSQL using dsn and migrates the schema. debug turns
// on GORM's SQL logging.
func New(dsn string, debug bool) (*Store, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.SetupJoinTable(&postRow{}, "Tags", &postTag{}); err != nil {
		return err
	}
	return s.db.AutoMigrate(&categoryRow{}, &tagRow{}, &postRow{}, &postTag{})
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.id")
	})
}

// FindPosts returns posts ordered by id, optionally filtered by publication
// state, with categories and tags loaded.
func (s *Store) FindPosts(ctx context.Context, q post.Query) ([]post.Post, error) {
	tx := withRelations(s.db.WithContext(ctx))
	if q.Published != nil {
		tx = tx.Where("published = ?", *q.Published)
	}
	var rows []postRow
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	posts := make([]post.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toPost())
	}
	return posts, nil
}

// FindPost returns the post with the given slug or post.ErrNotFound.
func (s *Store) FindPost(ctx context.Context, slug string) (post.Post, error) {
	return findPost(withRelations(s.db.WithContext(ctx)).Where("slug = ?", slug))
}

// CreatePost inserts the post and its tag links in one transaction.
func (s *Store) CreatePost(ctx context.Context, np post.NewPost) (post.Post, error) {
	var created post.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := postRow{
			Title:      np.Title,
			Slug:       np.Slug,
			Image:      np.Image,
			Content:    np.Content,
			Published:  np.Published,
			CategoryID: np.CategoryID,
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return classify(err)
		}
		if err := connectTags(tx, row.ID, np.TagIDs); err != nil {
			return err
		}
		var err error
		created, err = findPost(withRelations(tx).Where("id = ?", row.ID))
		return err
	})
	return created, err
}

// UpdatePost applies the patch to the post currently stored under slug in
// one transaction; a post deleted since the caller looked it up yields
// post.ErrNotFound.
func (s *Store) UpdatePost(ctx context.Context, slug string, p post.Patch) (post.Post, error) {
	var updated post.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row postRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("slug = ?", slug).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return post.ErrNotFound
			}
			return err
		}

		changes := map[string]any{"updated_at": time.Now()}
		if p.Title != nil {
			changes["title"] = *p.Title
		}
		if p.Slug != nil {
			changes["slug"] = *p.Slug
		}
		if p.Image != nil {
			changes["image"] = *p.Image
		}
		if p.Content != nil {
			changes["content"] = *p.Content
		}
		if p.Published != nil {
			changes["published"] = *p.Published
		}
		if p.CategoryID != nil {
			changes["category_id"] = *p.CategoryID
		}
		if err := tx.Model(&row).Updates(changes).Error; err != nil {
			return classify(err)
		}
		if len(p.DisconnectTags) > 0 {
			if err := tx.Where("post_id = ? AND tag_id IN ?", row.ID, p.DisconnectTags).Delete(&postTag{}).Error; err != nil {
				return err
			}
		}
		if err := connectTags(tx, row.ID, p.ConnectTags); err != nil {
			return err
		}
		var err error
		updated, err = findPost(withRelations(tx).Where("id = ?", row.ID))
		return err
	})
	return updated, err
}

// DeletePost removes a post by slug. Tag links cascade.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	res := s.db.WithContext(ctx).Where("slug = ?", slug).Delete(&postRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return post.ErrNotFound
	}
	return nil
}

// EnsureCategory returns the category with the given name, creating it if needed.
func (s *Store) EnsureCategory(ctx context.Context, name string) (post.Category, error) {
	row := categoryRow{Name: name}
	err := s.db.WithContext(ctx).Where(categoryRow{Name: name}).FirstOrCreate(&row).Error
	return post.Category{ID: row.ID, Name: row.Name}, err
}

// EnsureTag returns the tag with the given name, creating it if needed.
func (s *Store) EnsureTag(ctx context.Context, name string) (post.Tag, error) {
	row := tagRow{Name: name}
	err := s.db.WithContext(ctx).Where(tagRow{Name: name}).FirstOrCreate(&row).Error
	return post.Tag{ID: row.ID, Name: row.Name}, err
}

func findPost(tx *gorm.DB) (post.Post, error) {
	var row postRow
	if err := tx.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	return row.toPost(), nil
}

func connectTags(tx *gorm.DB, postID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]postTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, postTag{PostID: postID, TagID: id})
	}
	err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
	return classify(err)
}

// classify maps GORM's translated constraint errors to post.ErrConstraint.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: unknown category or tag", post.ErrConstraint)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: slug already in use", post.ErrConstraint)
	default:
		return err
	}
}
