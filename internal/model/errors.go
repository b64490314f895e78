// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePostNotFound            = "POST_NOT_FOUND"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeUnsupportedMediaType    = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeSlugGenerationExhausted = "SLUG_GENERATION_EXHAUSTED"
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeEmailTaken              = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal                = "INTERNAL_ERROR"
)

// NewPostNotFoundError は投稿未検出エラーを生成する。
// 非公開の投稿を所有者以外が参照した場合も、存在しない投稿と区別せずこのエラーを返す。
func NewPostNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", ref),
		Category: "post",
		Action:   "URLまたは投稿IDを確認してください。",
	}
}

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してから再度お試しください。",
	}
}

// NewUnsupportedMediaTypeError は対応していない画像形式のエラーを生成する。
func NewUnsupportedMediaTypeError(mimeType string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedMediaType,
		Message:  fmt.Sprintf("対応していない画像形式です: %s", mimeType),
		Category: "validation",
		Action:   "JPEG、PNG、GIF、WebPのいずれかの画像を指定してください。",
	}
}

// NewSlugGenerationExhaustedError は一意なスラッグを生成できなかった場合のエラーを生成する。
func NewSlugGenerationExhaustedError() *APIError {
	return &APIError{
		Code:     ErrCodeSlugGenerationExhausted,
		Message:  "投稿のURLを生成できませんでした。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しいただくか、タイトルを変更してください。",
	}
}

// NewUnauthorizedError は認証が必要な操作を未認証で実行した場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は所有者以外が所有者限定の操作を実行した場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "投稿の作成者のみが実行できます。",
	}
}

// NewEmailTakenError はメールアドレスが登録済みの場合のエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを指定してください。",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードが誤っている場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterで指定された秒数待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
