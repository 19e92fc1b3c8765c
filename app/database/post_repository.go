package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/callatispress/presscomb/app/cms"
)

// PostRepository keeps the last good copy of every post the CMS served, so a
// single-post page can still render while the upstream is failing.
type PostRepository struct {
	db  *DB
	now func() time.Time
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db, now: time.Now}
}

const postColumns = `slug, id, title, excerpt, content, category_id, category_slug, category_name,
	author, published_at, image, og_image, images, has_video, video, views`

// SavePosts upserts posts in one transaction and returns how many were written.
func (r *PostRepository) SavePosts(ctx context.Context, posts []cms.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (`+postColumns+`, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			id = excluded.id,
			title = excluded.title,
			excerpt = excluded.excerpt,
			content = excluded.content,
			category_id = excluded.category_id,
			category_slug = excluded.category_slug,
			category_name = excluded.category_name,
			author = excluded.author,
			published_at = excluded.published_at,
			image = excluded.image,
			og_image = excluded.og_image,
			images = excluded.images,
			has_video = excluded.has_video,
			video = excluded.video,
			views = excluded.views,
			saved_at = excluded.saved_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	savedAt := r.now().Unix()
	written := 0
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}

		images, err := json.Marshal(nonNil(p.Images))
		if err != nil {
			return 0, fmt.Errorf("failed to encode images for %s: %w", p.Slug, err)
		}

		if _, err := stmt.ExecContext(ctx,
			p.Slug, p.ID, p.Title, p.Excerpt, p.Content,
			p.Category.ID, p.Category.Slug, p.Category.Name,
			p.Author, unixOrZero(p.PublishedAt), p.Image, p.OGImage, string(images),
			p.HasVideo, p.Video, p.Views, savedAt,
		); err != nil {
			return 0, fmt.Errorf("failed to store post %s: %w", p.Slug, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit posts: %w", err)
	}

	return written, nil
}

// GetPost returns the stored post or nil when the slug was never saved.
func (r *PostRepository) GetPost(ctx context.Context, slug string) (*cms.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)

	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *PostRepository) CountPosts(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// PruneOlderThan removes posts that have not been refreshed since cutoff.
func (r *PostRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE saved_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune posts: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*cms.Post, error) {
	var (
		p           cms.Post
		publishedAt int64
		images      string
	)

	if err := s.Scan(
		&p.Slug, &p.ID, &p.Title, &p.Excerpt, &p.Content,
		&p.Category.ID, &p.Category.Slug, &p.Category.Name,
		&p.Author, &publishedAt, &p.Image, &p.OGImage, &images,
		&p.HasVideo, &p.Video, &p.Views,
	); err != nil {
		return nil, err
	}

	if publishedAt != 0 {
		p.PublishedAt = time.Unix(publishedAt, 0)
	}
	p.Images = []string{}
	if images != "" {
		if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
			return nil, fmt.Errorf("failed to decode images: %w", err)
		}
	}

	return &p, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
