package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/hitoshi/blogman/internal/model"
)

// sessionIDLength はセッションIDの長さ（32バイトの16進表現）。
const sessionIDLength = 64

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// isSessionID はidが発行しうる形式のセッションIDかどうかを返す。
func isSessionID(id string) bool {
	if len(id) != sessionIDLength {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.ExpiresAt.UTC(), session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDの有効なセッションを取得する。
// 形式が不正なID、存在しないID、期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if !isSessionID(id) {
		return nil, nil
	}

	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。存在しない場合も成功とする。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if !isSessionID(id) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
