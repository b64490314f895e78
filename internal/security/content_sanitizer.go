// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は投稿本文（ブロック形式の文書および従来形式のHTML）を
// サニタイズし、XSS攻撃などのセキュリティリスクから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグ・属性・スタイルのみを通過させる。
package security

import (
	"encoding/json"
	"regexp"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/blogman/internal/editorjs"
)

// ContentSanitizerService は投稿本文のサニタイズ機能のインターフェースを定義する。
// 投稿の保存前およびAPI応答時に使用される。
type ContentSanitizerService interface {
	// Sanitize はHTMLをリッチポリシーでサニタイズして安全なHTMLを返す。
	// 同一入力に対して常に同一出力を返し、出力を再度サニタイズしても変化しない。
	Sanitize(rawHTML string) string

	// SanitizeContent は本文をサニタイズし、入力と同じ表現（文書または文字列）で返す。
	SanitizeContent(c editorjs.Content) editorjs.Content

	// SanitizeDocument は文書の各ブロックをブロック種別ごとの規則でサニタイズした複製を返す。
	// ブロックの数・順序・id・typeは変更しない。
	SanitizeDocument(doc *editorjs.Document) *editorjs.Document
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
}

var (
	colorPattern    = regexp.MustCompile(`^#(0x)?[0-9a-f]+$|^rgb\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*\)$`)
	fontSizePattern = regexp.MustCompile(`^\d+(px|em|%)$`)
)

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: 見出し、段落、引用、リスト、強調、コード、表、画像、figure、input
//   - 許可属性: a(href, name, target)、img(src, alt, title, width, height)、
//     input(type, checked, disabled)、全要素(class, id, style)
//   - 許可スタイル: color(16進またはrgb())、text-align、font-size(px, em, %)
//   - URL属性: http, https, mailto および相対URLのみ
//
// コードブロックには属性もタグも許可しない厳格なポリシーを使う。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"blockquote", "p", "a", "ul", "ol", "nl", "li",
		"b", "i", "strong", "em", "strike", "code", "hr", "br", "div",
		"table", "thead", "caption", "tbody", "tr", "th", "td",
		"pre", "img", "figure", "figcaption", "input",
	)

	p.AllowAttrs("href", "name", "target").OnElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	p.AllowAttrs("class", "id", "style").Globally()

	// javascript: などのスキームはここで除去される。rel属性は付与しない
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("mailto", "http", "https")

	p.AllowStyles("color").Matching(colorPattern).Globally()
	p.AllowStyles("text-align").MatchingEnum("left", "right", "center", "justify").Globally()
	p.AllowStyles("font-size").Matching(fontSizePattern).Globally()

	return &contentSanitizer{
		rich:   p,
		strict: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLをリッチポリシーでサニタイズする。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.rich.Sanitize(rawHTML)
}

// SanitizeContent は本文を入力と同じ表現でサニタイズする。
// 文字列がブロック形式の文書のJSONであれば文書としてサニタイズしてから文字列に戻し、
// そうでなければ文字列全体をHTMLとしてサニタイズする。
func (s *contentSanitizer) SanitizeContent(c editorjs.Content) editorjs.Content {
	if doc, ok := c.Document(); ok {
		return editorjs.NewDocumentContent(s.SanitizeDocument(doc))
	}
	raw, _ := c.HTML()
	return editorjs.NewHTMLContent(s.sanitizeString(raw))
}

func (s *contentSanitizer) sanitizeString(raw string) string {
	if editorjs.LooksLikeDocument(raw) {
		if doc, err := editorjs.ParseDocument([]byte(raw)); err == nil {
			if out, err := json.Marshal(s.SanitizeDocument(doc)); err == nil {
				return string(out)
			}
		}
	}
	return s.Sanitize(raw)
}

// SanitizeDocument は文書の複製をブロック種別ごとの規則でサニタイズして返す。
func (s *contentSanitizer) SanitizeDocument(doc *editorjs.Document) *editorjs.Document {
	if doc == nil {
		return nil
	}
	out := *doc
	out.Blocks = make([]editorjs.Block, len(doc.Blocks))
	for i, b := range doc.Blocks {
		b.Data = s.sanitizeData(b.Data)
		out.Blocks[i] = b
	}
	return &out
}

// sanitizeData はブロック種別ごとの規則でdataをサニタイズする。
// 未知の種別（OpaqueData）とdelimiterはそのまま返す。
func (s *contentSanitizer) sanitizeData(data editorjs.BlockData) editorjs.BlockData {
	switch d := data.(type) {
	case editorjs.HeaderData:
		d.Text = s.richPtr(d.Text)
		d.Caption = s.richPtr(d.Caption)
		return d
	case editorjs.ParagraphData:
		d.Text = s.richPtr(d.Text)
		d.Caption = s.richPtr(d.Caption)
		return d
	case editorjs.QuoteData:
		d.Text = s.richPtr(d.Text)
		d.Caption = s.richPtr(d.Caption)
		return d
	case editorjs.ListData:
		d.Items = s.sanitizeListItems(d.Items)
		return d
	case editorjs.ChecklistData:
		if d.Items != nil {
			items := make([]editorjs.ChecklistItem, len(d.Items))
			for i, item := range d.Items {
				item.Text = s.richPtr(item.Text)
				items[i] = item
			}
			d.Items = items
		}
		return d
	case editorjs.CodeData:
		if d.Code != nil {
			code := s.strict.Sanitize(*d.Code)
			d.Code = &code
		}
		return d
	case editorjs.ImageData:
		d.Caption = s.richPtr(d.Caption)
		return d
	case editorjs.TableData:
		if d.Rows != nil {
			rows := make([]editorjs.TableRow, len(d.Rows))
			for i, row := range d.Rows {
				if row.Cells != nil {
					cells := make([]editorjs.TableCell, len(row.Cells))
					for j, cell := range row.Cells {
						cell.Text = s.richPtr(cell.Text)
						cells[j] = cell
					}
					row.Cells = cells
				}
				rows[i] = row
			}
			d.Rows = rows
		}
		return d
	}
	return data
}

func (s *contentSanitizer) sanitizeListItems(items []editorjs.ListItem) []editorjs.ListItem {
	if items == nil {
		return nil
	}
	out := make([]editorjs.ListItem, len(items))
	for i, item := range items {
		item.Content = s.richPtr(item.Content)
		item.Items = s.sanitizeListItems(item.Items)
		out[i] = item
	}
	return out
}

func (s *contentSanitizer) richPtr(v *string) *string {
	if v == nil {
		return nil
	}
	clean := s.rich.Sanitize(*v)
	return &clean
}
