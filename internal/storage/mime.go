// Package storage はカバー画像などのアップロードファイルの検証と保存を提供する。
package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedMimeType は許可されていないMIMEタイプが指定されたことを示す。
	ErrUnsupportedMimeType = errors.New("storage: unsupported mime type")
	// ErrInvalidDataURI はdata URIの形式が不正であることを示す。
	ErrInvalidDataURI = errors.New("storage: invalid data URI")
	// ErrNotImage はデータが宣言された形式の画像として読み取れないことを示す。
	ErrNotImage = errors.New("storage: data is not a valid image")
	// ErrFileTooLarge はデータがアップロード上限を超えていることを示す。
	ErrFileTooLarge = errors.New("storage: file too large")
)

// allowedMimeTypes は許可するMIMEタイプと保存時の拡張子。
var allowedMimeTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ValidateMimeType はMIMEタイプが許可リストに含まれるかを検証し、保存時の拡張子を返す。
func ValidateMimeType(mimeType string) (string, error) {
	ext, ok := allowedMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMimeType, mimeType)
	}
	return ext, nil
}

// DecodeDataURI は "data:<mime>;base64,<data>" 形式の文字列をデコードし、データとMIMEタイプを返す。
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", fmt.Errorf("%w: only base64 encoding is supported", ErrInvalidDataURI)
	}
	if mimeType == "" {
		return nil, "", fmt.Errorf("%w: missing mime type", ErrInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return data, strings.ToLower(mimeType), nil
}
