// Package render はサニタイズ済みのブロック形式の文書をHTMLに変換する。
//
// Renderは入力がサニタイズ済みであることを前提とし、要素の中身をエスケープしない。
// 呼び出し順序は必ずサニタイズ→レンダリングとすること。
package render

import (
	"html"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/blogman/internal/editorjs"
)

const defaultHeaderLevel = 2

// Renderer はブロック形式の文書をHTMLに変換する。
// 状態を持たないため、複数のゴルーチンから同時に使用できる。
type Renderer struct {
	highlighter Highlighter
	textOnly    *bluemonday.Policy
}

// Option はRendererの設定を変更する。
type Option func(*Renderer)

// WithCodeHighlighter はcodeブロックのシンタックスハイライトを有効にする。
// languageを持つcodeブロックのみがハイライトの対象になる。
func WithCodeHighlighter(h Highlighter) Option {
	return func(r *Renderer) {
		r.highlighter = h
	}
}

// New は新しいRendererを生成する。
func New(opts ...Option) *Renderer {
	r := &Renderer{
		textOnly: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render は文書の各ブロックをHTML断片に変換し、改行で連結して返す。
// 未知の種別のブロックは空文字列になるが、連結の位置は保たれる。
func (r *Renderer) Render(doc *editorjs.Document) string {
	if doc == nil {
		return ""
	}
	parts := make([]string, len(doc.Blocks))
	for i, b := range doc.Blocks {
		parts[i] = r.renderBlock(b)
	}
	return strings.Join(parts, "\n")
}

// RenderContent は本文をHTMLに変換する。
// 文字列形式の本文は、文書のJSONであれば文書として変換し、そうでなければそのまま返す。
func (r *Renderer) RenderContent(c editorjs.Content) string {
	if doc, ok := c.Document(); ok {
		return r.Render(doc)
	}
	raw, _ := c.HTML()
	if editorjs.LooksLikeDocument(raw) {
		if doc, err := editorjs.ParseDocument([]byte(raw)); err == nil {
			return r.Render(doc)
		}
	}
	return raw
}

func (r *Renderer) renderBlock(b editorjs.Block) string {
	switch d := b.Data.(type) {
	case editorjs.HeaderData:
		level := defaultHeaderLevel
		if d.Level != nil {
			level = min(max(*d.Level, 1), 6)
		}
		tag := "h" + strconv.Itoa(level)
		return "<" + tag + ">" + deref(d.Text) + "</" + tag + ">"
	case editorjs.ParagraphData:
		return "<p>" + deref(d.Text) + "</p>"
	case editorjs.ListData:
		return renderList(deref(d.Style) == "ordered", d.Items)
	case editorjs.ChecklistData:
		return renderChecklist(d.Items)
	case editorjs.QuoteData:
		var sb strings.Builder
		sb.WriteString("<blockquote><p>")
		sb.WriteString(deref(d.Text))
		sb.WriteString("</p>")
		if caption := deref(d.Caption); caption != "" {
			sb.WriteString("<footer>")
			sb.WriteString(caption)
			sb.WriteString("</footer>")
		}
		sb.WriteString("</blockquote>")
		return sb.String()
	case editorjs.CodeData:
		return r.renderCode(d)
	case editorjs.ImageData:
		return r.renderImage(d)
	case editorjs.DelimiterData:
		return "<hr />"
	case editorjs.TableData:
		return renderTable(d.Rows)
	}
	return ""
}

func renderList(ordered bool, items []editorjs.ListItem) string {
	tag := "ul"
	if ordered {
		tag = "ol"
	}
	var sb strings.Builder
	sb.WriteString("<" + tag + ">")
	for _, item := range items {
		if item.Raw != nil {
			continue
		}
		sb.WriteString("<li>")
		sb.WriteString(deref(item.Content))
		if len(item.Items) > 0 {
			sb.WriteString(renderList(ordered, item.Items))
		}
		sb.WriteString("</li>")
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}

func renderChecklist(items []editorjs.ChecklistItem) string {
	var sb strings.Builder
	sb.WriteString(`<div class="checklist">`)
	for _, item := range items {
		if item.Raw != nil {
			continue
		}
		sb.WriteString(`<div class="checklist-item"><input type="checkbox"`)
		if item.Checked != nil && *item.Checked {
			sb.WriteString(" checked")
		}
		sb.WriteString(" disabled><span>")
		sb.WriteString(deref(item.Text))
		sb.WriteString("</span></div>")
	}
	sb.WriteString("</div>")
	return sb.String()
}

func (r *Renderer) renderCode(d editorjs.CodeData) string {
	code := deref(d.Code)
	lang := deref(d.Language)
	if r.highlighter == nil || lang == "" {
		return "<pre><code>" + code + "</code></pre>"
	}
	highlighted, err := r.highlighter.Highlight(code, lang)
	if err != nil {
		slog.Warn("code highlight failed",
			slog.String("language", lang),
			slog.String("error", err.Error()),
		)
		return "<pre><code>" + code + "</code></pre>"
	}
	return `<pre><code class="language-` + html.EscapeString(lang) + `">` + highlighted + "</code></pre>"
}

func (r *Renderer) renderImage(d editorjs.ImageData) string {
	src := d.FileURL()
	if !isSafeImageURL(src) {
		return ""
	}
	caption := deref(d.Caption)
	alt := html.UnescapeString(r.textOnly.Sanitize(caption))

	var sb strings.Builder
	sb.WriteString(`<figure><img src="`)
	sb.WriteString(html.EscapeString(src))
	sb.WriteString(`" alt="`)
	sb.WriteString(html.EscapeString(alt))
	sb.WriteString(`" />`)
	if caption != "" {
		sb.WriteString("<figcaption>")
		sb.WriteString(caption)
		sb.WriteString("</figcaption>")
	}
	sb.WriteString("</figure>")
	return sb.String()
}

func renderTable(rows []editorjs.TableRow) string {
	var sb strings.Builder
	sb.WriteString("<table><tbody>")
	for _, row := range rows {
		if row.Raw != nil {
			continue
		}
		sb.WriteString("<tr>")
		for _, cell := range row.Cells {
			sb.WriteString("<td>")
			sb.WriteString(deref(cell.Text))
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
	return sb.String()
}

// isSafeImageURL はURLがhttp(s)または相対URLであるかを返す。
func isSafeImageURL(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return true
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
