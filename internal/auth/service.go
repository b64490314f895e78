// Package auth はユーザー登録・ログイン・ログアウトと、セッショントークンからの閲覧者の解決を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// ErrUnauthorized はトークンが未指定・不明・期限切れであることを示す。
var ErrUnauthorized = errors.New("auth: unauthorized")

const (
	minPasswordLength = 8
	// bcryptは72バイトを超える入力を扱えない
	maxPasswordBytes = 72
	maxNameLength    = 100
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 0の場合はbcrypt.DefaultCost
}

// AuthResult は登録・ログインの結果。TokenはAuthorizationヘッダーまたはCookieで送り返す。
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		now:         time.Now,
	}
}

// Register はユーザーを作成し、セッションを発行する。
// メールアドレスは小文字化・前後の空白除去を行ってから保存する。
func (s *Service) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, model.NewValidationError("名前は必須です")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("名前は%d文字以内で入力してください", maxNameLength))
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if len(password) < minPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上で入力してください", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%dバイト以内で入力してください", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered", slog.String("user_id", user.ID))

	return s.issue(ctx, user)
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
// ユーザーが存在しない場合とパスワードが誤っている場合は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return s.issue(ctx, user)
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthorized
	}

	if err := s.sessionRepo.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// CurrentUser はトークンに対応するユーザーを返す。
// トークンが未指定・不明・期限切れの場合はErrUnauthorizedを返す。
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	session, err := s.sessionRepo.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || !session.ExpiresAt.After(s.now()) {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	return user, nil
}

// ResolveViewer はトークンから閲覧者を解決する。
func (s *Service) ResolveViewer(ctx context.Context, token string) (*model.Viewer, error) {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &model.Viewer{ID: user.ID, Name: user.Name, Role: user.Role}, nil
}

// issue はセッションを作成して認証結果を返す。
func (s *Service) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &AuthResult{User: user, Token: session.ID, ExpiresAt: session.ExpiresAt}, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now().UTC()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
