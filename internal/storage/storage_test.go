package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func TestValidateMimeType(t *testing.T) {
	for mimeType, wantExt := range map[string]string{
		"image/jpeg": "jpg",
		"image/jpg":  "jpg",
		"image/png":  "png",
		"image/gif":  "gif",
		"image/webp": "webp",
		"IMAGE/PNG":  "png",
	} {
		ext, err := ValidateMimeType(mimeType)
		require.NoError(t, err, mimeType)
		assert.Equal(t, wantExt, ext, mimeType)
	}

	for _, mimeType := range []string{"image/svg+xml", "text/html", "application/pdf", ""} {
		_, err := ValidateMimeType(mimeType)
		assert.ErrorIs(t, err, ErrUnsupportedMimeType, mimeType)
	}
}

func TestDecodeDataURI(t *testing.T) {
	t.Run("base64のdata URIをデコードする", func(t *testing.T) {
		data, mimeType, err := DecodeDataURI("data:image/PNG;base64," + base64.StdEncoding.EncodeToString([]byte("abc")))
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), data)
		assert.Equal(t, "image/png", mimeType)
	})

	for name, uri := range map[string]string{
		"プレフィックスなし":  "image/png;base64,AAAA",
		"カンマなし":      "data:image/png;base64",
		"base64以外":   "data:image/png,AAAA",
		"MIMEタイプなし":  "data:;base64,AAAA",
		"不正なbase64":  "data:image/png;base64,@@@",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeDataURI(uri)
			assert.ErrorIs(t, err, ErrInvalidDataURI)
		})
	}
}

// fakeStore はFileStoreのテスト用実装。
type fakeStore struct {
	stored   [][]byte
	storeErr error
}

func (s *fakeStore) Store(_ context.Context, data []byte, mimeType string) (string, error) {
	if s.storeErr != nil {
		return "", s.storeErr
	}
	s.stored = append(s.stored, data)
	ext, _ := ValidateMimeType(mimeType)
	return "file." + ext, nil
}

func (s *fakeStore) URL(filename string) string { return "https://cdn.example.com/" + filename }
func (s *fakeStore) Name() string               { return "fake" }

func TestUploader_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("宣言どおりの画像は保存されURLが返る", func(t *testing.T) {
		for mimeType, data := range map[string][]byte{
			"image/png":  encodePNG(t),
			"image/jpeg": encodeJPEG(t),
			"image/jpg":  encodeJPEG(t),
			"image/gif":  encodeGIF(t),
		} {
			store := &fakeStore{}
			url, err := NewUploader(store, 0, nil).Upload(ctx, data, mimeType)
			require.NoError(t, err, mimeType)
			assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/file."), url)
			assert.Len(t, store.stored, 1)
		}
	})

	t.Run("許可されていないMIMEタイプ", func(t *testing.T) {
		store := &fakeStore{}
		_, err := NewUploader(store, 0, nil).Upload(ctx, []byte("<svg/>"), "image/svg+xml")
		assert.ErrorIs(t, err, ErrUnsupportedMimeType)
		assert.Empty(t, store.stored)
	})

	t.Run("宣言と異なる形式の画像", func(t *testing.T) {
		_, err := NewUploader(&fakeStore{}, 0, nil).Upload(ctx, encodePNG(t), "image/gif")
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("画像でないデータ", func(t *testing.T) {
		_, err := NewUploader(&fakeStore{}, 0, nil).Upload(ctx, []byte("not an image"), "image/png")
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("上限を超えるサイズ", func(t *testing.T) {
		_, err := NewUploader(&fakeStore{}, 10, nil).Upload(ctx, encodePNG(t), "image/png")
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("保存先のエラーはラップして返す", func(t *testing.T) {
		storeErr := errors.New("disk full")
		_, err := NewUploader(&fakeStore{storeErr: storeErr}, 0, nil).Upload(ctx, encodePNG(t), "image/png")
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestLocalStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store := NewLocalStore(dir, "http://localhost:8080/uploads/")
	data := encodePNG(t)

	filename, err := store.Store(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".png"))
	assert.Len(t, filename, 36+len(".png"))

	written, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Equal(t, data, written)

	assert.Equal(t, "http://localhost:8080/uploads/"+filename, store.URL(filename))
	assert.Equal(t, "local", store.Name())

	_, err = store.Store(context.Background(), data, "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedMimeType)
}

// fakeS3 はPutObjectAPIのテスト用実装。
type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := &fakeS3{}
	store := NewS3StoreWithClient(client, "covers", "https://cdn.example.com")
	data := encodeJPEG(t)

	key, err := store.Store(context.Background(), data, "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	require.NotNil(t, client.input)
	assert.Equal(t, "covers", *client.input.Bucket)
	assert.Equal(t, key, *client.input.Key)
	assert.Equal(t, "image/jpeg", *client.input.ContentType)
	assert.Equal(t, int64(len(data)), *client.input.ContentLength)
	assert.Equal(t, data, client.body)

	assert.Equal(t, "https://cdn.example.com/"+key, store.URL(key))
	assert.Equal(t, "s3", store.Name())

	putErr := errors.New("access denied")
	_, err = NewS3StoreWithClient(&fakeS3{err: putErr}, "covers", "").Store(context.Background(), data, "image/jpeg")
	assert.ErrorIs(t, err, putErr)
}
