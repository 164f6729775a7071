package gormstore

import (
	"time"

	"github.com/eringen/pubapi/post"
)

type categoryRow struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex"`
}

func (categoryRow) TableName() string { return "categories" }

type tagRow struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex"`
}

func (tagRow) TableName() string { return "tags" }

type postRow struct {
	ID         int64  `gorm:"primaryKey"`
	Title      string `gorm:"not null"`
	Slug       string `gorm:"not null;uniqueIndex"`
	Image      *string
	Content    string      `gorm:"type:text;not null"`
	Published  bool        `gorm:"not null;index"`
	CategoryID int64       `gorm:"not null;index"`
	Category   categoryRow `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Tags       []tagRow    `gorm:"many2many:post_tags;joinForeignKey:PostID;joinReferences:TagID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (postRow) TableName() string { return "posts" }

// postTag is the join table between posts and tags.
type postTag struct {
	PostID int64   `gorm:"primaryKey"`
	TagID  int64   `gorm:"primaryKey;index"`
	Post   postRow `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Tag    tagRow  `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
}

func (postTag) TableName() string { return "post_tags" }

func (r postRow) toPost() post.Post {
	p := post.Post{
		ID:         r.ID,
		Title:      r.Title,
		Slug:       r.Slug,
		Image:      r.Image,
		Content:    r.Content,
		Published:  r.Published,
		CategoryID: r.CategoryID,
		Category:   post.Category{ID: r.Category.ID, Name: r.Category.Name},
		Tags:       make([]post.Tag, 0, len(r.Tags)),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	for _, t := range r.Tags {
		p.Tags = append(p.Tags, post.Tag{ID: t.ID, Name: t.Name})
	}
	return p
}
