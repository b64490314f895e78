// Package model はドメインモデルを定義する。
package model

import "time"

// ユーザーの役割。
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User はサービス利用ユーザーを表す。
// Emailは小文字化・前後の空白除去を行った値で保存される。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// IDがそのまま認証情報（不透明なトークン）として使われる。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Viewer はリクエストを行っている閲覧者を表す。
// nilの*Viewerは未認証の閲覧者を意味する。永続化されない。
type Viewer struct {
	ID   string
	Name string
	Role string
}
