package middleware

import (
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// compressMinSize はgzip圧縮を行うレスポンスボディの最小バイト数。
const compressMinSize = 1024

// NewCompressMiddleware はAccept-Encodingに応じてレスポンスをgzip圧縮するミドルウェアを返す。
// compressMinSize未満の小さなレスポンスは圧縮しない。
func NewCompressMiddleware() (func(next http.Handler) http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressMinSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip wrapper: %w", err)
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}
