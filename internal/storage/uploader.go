package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	_ "golang.org/x/image/webp"

	"github.com/hitoshi/blogman/internal/metrics"
)

// DefaultMaxUploadSize はアップロードできるファイルサイズの既定の上限（5MB）。
const DefaultMaxUploadSize = 5 << 20

// FileStore はファイルの保存先を抽象化するインターフェース。
type FileStore interface {
	// Store はデータを保存し、保存したファイル名を返す。
	Store(ctx context.Context, data []byte, mimeType string) (string, error)
	// URL はファイル名から公開URLを生成する。
	URL(filename string) string
	// Name はメトリクスやログに使う保存先の名前を返す。
	Name() string
}

// Uploader はアップロードされた画像を検証してから保存先に委譲する。
type Uploader struct {
	store   FileStore
	maxSize int
	metrics metrics.MetricsCollector
}

// NewUploader はUploaderを生成する。maxSizeが0以下の場合はDefaultMaxUploadSizeを使う。
func NewUploader(store FileStore, maxSize int, mc metrics.MetricsCollector) *Uploader {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Uploader{store: store, maxSize: maxSize, metrics: mc}
}

// Upload は画像データを検証して保存し、公開URLを返す。
// MIMEタイプが許可リストにない場合はErrUnsupportedMimeType、
// データが宣言された形式の画像でない場合はErrNotImageを返す。
func (u *Uploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	if _, err := ValidateMimeType(mimeType); err != nil {
		return "", err
	}
	if len(data) > u.maxSize {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(data))
	}
	if err := verifyImage(data, mimeType); err != nil {
		return "", err
	}

	filename, err := u.store.Store(ctx, data, mimeType)
	if err != nil {
		slog.Error("ファイルの保存に失敗しました",
			slog.String("backend", u.store.Name()),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	u.metrics.RecordUpload(u.store.Name(), len(data))
	return u.store.URL(filename), nil
}

// imageFormats はMIMEタイプとimage.DecodeConfigが返す形式名の対応。
var imageFormats = map[string]string{
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// verifyImage はデータが宣言されたMIMEタイプと同じ形式の画像であることを確認する。
func verifyImage(data []byte, mimeType string) error {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if want := imageFormats[mimeType]; format != want {
		return fmt.Errorf("%w: declared %s but got %s", ErrNotImage, mimeType, format)
	}
	return nil
}
