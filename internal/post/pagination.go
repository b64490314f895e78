package post

import (
	"math"

	"github.com/hitoshi/blogman/internal/visibility"
)

const (
	// DefaultPageSize はlimit未指定時の1ページあたりの件数。
	DefaultPageSize = 10
	// MaxPageSize は1ページあたりの最大件数。
	MaxPageSize = 100
)

// PageRequest はページ番号（1始まり）と1ページあたりの件数。
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize はページ番号を1以上に、件数を1〜MaxPageSizeに丸める。件数が0の場合はDefaultPageSizeを使う。
// ページ番号はOffsetがintに収まる範囲に切り詰める。
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit == 0:
		p.Limit = DefaultPageSize
	case p.Limit < 1:
		p.Limit = 1
	case p.Limit > MaxPageSize:
		p.Limit = MaxPageSize
	}
	if maxPage := math.MaxInt / p.Limit; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// Offset は取得開始位置を返す。Normalize済みであること。
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination は一覧レスポンスのページ情報。
type Pagination struct {
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
}

// NewPagination は総件数とページ指定からページ情報を生成する。
func NewPagination(total int, page PageRequest) Pagination {
	return Pagination{
		Total:     total,
		Page:      page.Page,
		PageSize:  page.Limit,
		PageCount: (total + page.Limit - 1) / page.Limit,
	}
}

// PostPage は投稿一覧の1ページ分。
type PostPage struct {
	Posts      []visibility.PostView `json:"posts"`
	Pagination Pagination            `json:"pagination"`
}
