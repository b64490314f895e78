package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore はローカルディスクにファイルを保存する。
type LocalStore struct {
	dir       string
	publicURL string
}

// NewLocalStore はLocalStoreを生成する。publicURLは保存ディレクトリを配信するURLのプレフィックス。
func NewLocalStore(dir, publicURL string) *LocalStore {
	return &LocalStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

// Store はデータを "<uuid>.<ext>" という名前で保存する。
func (s *LocalStore) Store(ctx context.Context, data []byte, mimeType string) (string, error) {
	filename, err := newFilename(mimeType)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filename, nil
}

// URL はファイルの公開URLを返す。
func (s *LocalStore) URL(filename string) string {
	return s.publicURL + "/" + filename
}

// Name は保存先の名前を返す。
func (s *LocalStore) Name() string {
	return "local"
}

// newFilename はMIMEタイプに応じた拡張子付きの一意なファイル名を生成する。
func newFilename(mimeType string) (string, error) {
	ext, err := ValidateMimeType(mimeType)
	if err != nil {
		return "", err
	}
	return uuid.New().String() + "." + ext, nil
}

// compile-time interface check
var _ FileStore = (*LocalStore)(nil)
