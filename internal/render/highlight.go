package render

import (
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter はコードブロックのシンタックスハイライトを行う。
// codeはサニタイズ済み（HTMLエスケープ済み）の文字列として渡される。
type Highlighter interface {
	Highlight(code, language string) (string, error)
}

// ChromaHighlighter はchromaを使ってクラスベースのHTMLを生成するHighlighter。
type ChromaHighlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewChromaHighlighter はスタイル名を指定してChromaHighlighterを生成する。
// 未知のスタイル名の場合はchromaのフォールバックスタイルを使う。
func NewChromaHighlighter(styleName string) *ChromaHighlighter {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &ChromaHighlighter{
		style: style,
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.WithLineNumbers(false),
			chromahtml.PreventSurroundingPre(true),
		),
	}
}

// Highlight はcodeをlanguageの字句解析器でトークン化し、HTMLを返す。
// 未知の言語はフォールバックの字句解析器（プレーンテキスト）で処理する。
func (h *ChromaHighlighter) Highlight(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	// chromaは出力時にエスケープするため、サニタイズ時のエスケープを戻してから渡す
	iterator, err := lexer.Tokenise(nil, html.UnescapeString(code))
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}
