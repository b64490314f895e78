package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/blogman/internal/model"
)

const (
	pqUniqueViolation = "23505"

	constraintPostsSlug  = "posts_slug_key"
	constraintUsersEmail = "users_email_key"
)

// postSelect は投稿の取得に共通するSELECT句。いいねしたユーザーIDは配列として集約する。
const postSelect = `SELECT p.id, p.title, p.content, p.slug, p.author_id, u.name, p.tags,
	p.status, p.is_active, p.cover_image, p.created_at, p.updated_at,
	ARRAY(SELECT l.user_id::text FROM post_likes l WHERE l.post_id = p.id ORDER BY l.created_at, l.user_id) AS likes
 FROM posts p
 JOIN users u ON u.id = p.author_id`

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// postRecord はpostsテーブルに保存する形式の投稿。
// 本文はContentのJSON表現（オブジェクトまたは文字列）をそのままJSONBに格納する。
type postRecord struct {
	ID         string
	Title      string
	Content    string
	Slug       string
	AuthorID   string
	Tags       []string
	Status     string
	IsActive   bool
	CoverImage sql.NullString
}

// toPostRecord は投稿を保存用の形式に変換する。
func toPostRecord(post *model.Post) (postRecord, error) {
	content, err := json.Marshal(post.Content)
	if err != nil {
		return postRecord{}, fmt.Errorf("failed to encode post content: %w", err)
	}
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	rec := postRecord{
		ID:       post.ID,
		Title:    post.Title,
		Content:  string(content),
		Slug:     post.Slug,
		AuthorID: post.AuthorID,
		Tags:     tags,
		Status:   string(post.Status),
		IsActive: post.IsActive,
	}
	if post.CoverImage != nil {
		rec.CoverImage = sql.NullString{String: *post.CoverImage, Valid: true}
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		post    model.Post
		content []byte
		tags    pq.StringArray
		likes   pq.StringArray
		status  string
		cover   sql.NullString
	)
	err := row.Scan(
		&post.ID, &post.Title, &content, &post.Slug, &post.AuthorID, &post.AuthorName, &tags,
		&status, &post.IsActive, &cover, &post.CreatedAt, &post.UpdatedAt, &likes,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &post.Content); err != nil {
		return nil, fmt.Errorf("failed to decode post content: %w", err)
	}
	post.Tags = []string(tags)
	post.Likes = []string(likes)
	post.Status = model.PostStatus(status)
	if cover.Valid {
		post.CoverImage = &cover.String
	}
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()
	return &post, nil
}

// FindBySlug は指定スラッグの投稿をコメント付きで取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, postSelect+` WHERE p.slug = $1`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by slug: %w", err)
	}
	if err := r.loadComments(ctx, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// FindByID は指定IDの投稿をコメント付きで取得する。
// 見つからない場合、およびIDがUUID形式でない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	post, err := scanPost(r.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	if err := r.loadComments(ctx, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// ExistsBySlug は指定スラッグの投稿が存在するかを返す。
func (r *PostgresPostRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`,
		slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return exists, nil
}

// Insert は投稿を作成する。IDが空の場合は新しいUUIDを割り当てる。
// スラッグの一意制約に違反した場合はErrSlugConflictを返す。
func (r *PostgresPostRepo) Insert(ctx context.Context, post *model.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	rec, err := toPostRecord(post)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, slug, author_id, tags, status, is_active, cover_image, created_at, updated_at)
		 VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Title, rec.Content, rec.Slug, rec.AuthorID, pq.Array(rec.Tags),
		rec.Status, rec.IsActive, rec.CoverImage, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintPostsSlug) {
			return fmt.Errorf("%w: %s", ErrSlugConflict, post.Slug)
		}
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// ToggleLike はいいねを切り替える。
// 既存のいいねを削除し、削除対象がなければ追加する。同時実行時の重複は主キーで防ぐ。
func (r *PostgresPostRepo) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
		postID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete like: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	liked := false
	if removed == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO post_likes (post_id, user_id, created_at)
			 VALUES ($1, $2, now())
			 ON CONFLICT (post_id, user_id) DO NOTHING`,
			postID, userID,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert like: %w", err)
		}
		liked = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return liked, nil
}

// AppendComment はコメントを1件追記する。IDが空の場合は新しいUUIDを割り当てる。
func (r *PostgresPostRepo) AppendComment(ctx context.Context, comment *model.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO post_comments (id, post_id, author_id, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID, comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append comment: %w", err)
	}
	return nil
}

// ToggleActive はis_activeを反転し、更新後の投稿を返す。見つからない場合はnilを返す。
func (r *PostgresPostRepo) ToggleActive(ctx context.Context, postID string) (*model.Post, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, nil
	}
	var id string
	err := r.db.QueryRowContext(ctx,
		`UPDATE posts SET is_active = NOT is_active, updated_at = now()
		 WHERE id = $1
		 RETURNING id`,
		postID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle post active state: %w", err)
	}
	return r.FindByID(ctx, id)
}

// FindPage は条件に一致する投稿をcreated_at降順で取得し、総件数とともに返す。
func (r *PostgresPostRepo) FindPage(ctx context.Context, filter PostFilter, limit, offset int) ([]*model.Post, int, error) {
	where, args := buildPostFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	n := len(args)
	query := postSelect + where +
		` ORDER BY p.created_at DESC, p.id DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*model.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate posts: %w", err)
	}

	if err := r.loadComments(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// buildPostFilter は絞り込み条件からWHERE句とパラメータを組み立てる。
func buildPostFilter(filter PostFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.PublicOnly {
		conds = append(conds, `p.is_active = true`, `p.status = 'published'`)
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conds = append(conds, `p.author_id = $`+strconv.Itoa(len(args)))
	}
	if filter.SlugContains != "" {
		args = append(args, "%"+escapeLike(filter.SlugContains)+"%")
		conds = append(conds, `p.slug ILIKE $`+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike はLIKEパターンのメタ文字をエスケープする。
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// loadComments は投稿群のコメントをまとめて取得し、作成日時順に各投稿へ設定する。
func (r *PostgresPostRepo) loadComments(ctx context.Context, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	byID := make(map[string]*model.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
		p.Comments = []model.Comment{}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.content, c.author_id, u.name, c.created_at, c.updated_at
		 FROM post_comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = ANY($1::uuid[])
		 ORDER BY c.created_at, c.id`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.AuthorName, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		if p, ok := byID[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate comments: %w", err)
	}
	return nil
}

// isUniqueViolation はエラーが指定した制約の一意制約違反かどうかを返す。
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraint
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
