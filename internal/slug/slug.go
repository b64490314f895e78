// Package slug は投稿タイトルからURLに使える識別子（スラッグ）を生成する。
package slug

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
)

// MaxAttempts は一意なスラッグを探す際の最大試行回数（ベース1回 + サフィックス付き9回）。
const MaxAttempts = 10

// FallbackBase はタイトルからスラッグにできる文字が得られなかった場合のベース。
const FallbackBase = "post"

const (
	suffixLength   = 6
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// ErrExhausted は最大試行回数までに一意なスラッグが見つからなかったことを示す。
var ErrExhausted = errors.New("slug: unique slug generation exhausted")

// transliteration はトルコ語の文字をASCIIに置き換える表。大文字・小文字の両方を含む。
var transliteration = strings.NewReplacer(
	"ç", "c", "Ç", "c",
	"ğ", "g", "Ğ", "g",
	"ş", "s", "Ş", "s",
	"ü", "u", "Ü", "u",
	"ı", "i", "İ", "i",
	"ö", "o", "Ö", "o",
)

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
	hyphens      = regexp.MustCompile(`-+`)
)

// DeriveBase はタイトルからスラッグのベースを生成する。
// 翻字→小文字化→不正文字の除去→空白をハイフンに→連続ハイフンの圧縮→前後のハイフンの除去の順で処理する。
// 結果が空になる場合はFallbackBaseを返す。
func DeriveBase(title string) string {
	s := transliteration.Replace(title)
	s = strings.ToLower(s)
	s = invalidChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return FallbackBase
	}
	return s
}

// ExistsFunc はスラッグが既に使われているかを返す。
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Assigner は一意なスラッグを割り当てる。サフィックスの乱数源を保持する。
type Assigner struct {
	rng *rand.Rand
}

// NewAssigner はrngを乱数源とするAssignerを生成する。nilの場合はグローバルな乱数源を使う。
func NewAssigner(rng *rand.Rand) *Assigner {
	return &Assigner{rng: rng}
}

var defaultAssigner = NewAssigner(nil)

// AssignUnique はグローバルな乱数源でAssigner.AssignUniqueを呼び出す。
func AssignUnique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	return defaultAssigner.AssignUnique(ctx, base, exists)
}

// AssignUnique はbaseが未使用ならbaseを、使用済みならランダムな6文字のサフィックスを付けた候補を返す。
// existsの確認は挿入時の一意制約違反を防ぐものではなく、呼び出し側で再試行が必要。
// MaxAttempts回の確認で見つからない場合はErrExhaustedを返す。
func (a *Assigner) AssignUnique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = base + "-" + a.suffix()
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug existence: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}

func (a *Assigner) suffix() string {
	b := make([]byte, suffixLength)
	for i := range b {
		b[i] = suffixAlphabet[a.intN(len(suffixAlphabet))]
	}
	return string(b)
}

func (a *Assigner) intN(n int) int {
	if a.rng == nil {
		return rand.IntN(n)
	}
	return a.rng.IntN(n)
}
