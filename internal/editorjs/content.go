package editorjs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Content は投稿本文。ブロック形式の文書か、従来形式のHTML文字列のどちらか一方を保持する。
// JSONへの再エンコード時はデコード元と同じ表現（オブジェクトまたは文字列）を使う。
type Content struct {
	doc  *Document
	html string
}

// NewDocumentContent は文書を本文とするContentを生成する。
func NewDocumentContent(doc *Document) Content {
	return Content{doc: doc}
}

// NewHTMLContent はHTML文字列を本文とするContentを生成する。
func NewHTMLContent(html string) Content {
	return Content{html: html}
}

// Document は本文が文書形式の場合に文書を返す。
func (c Content) Document() (*Document, bool) {
	return c.doc, c.doc != nil
}

// HTML は本文が文字列形式の場合に文字列を返す。
func (c Content) HTML() (string, bool) {
	return c.html, c.doc == nil
}

// IsDocument は本文が文書形式かどうかを返す。
func (c Content) IsDocument() bool {
	return c.doc != nil
}

// IsEmpty は本文が空の文字列であるかどうかを返す。
// 文書形式の場合はブロック数に関わらず空とみなさない。
func (c Content) IsEmpty() bool {
	return c.doc == nil && strings.TrimSpace(c.html) == ""
}

// MarshalJSON は本文をデコード元と同じ表現でエンコードする。
func (c Content) MarshalJSON() ([]byte, error) {
	if c.doc != nil {
		return json.Marshal(c.doc)
	}
	return json.Marshal(c.html)
}

// UnmarshalJSON はJSON文字列をHTML本文、JSONオブジェクトを文書としてデコードする。
// nullはゼロ値になる。
func (c *Content) UnmarshalJSON(data []byte) error {
	switch {
	case isNull(data):
		*c = Content{}
		return nil
	case isString(data):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("editorjs: decode content string: %w", err)
		}
		*c = NewHTMLContent(s)
		return nil
	case isObject(data):
		doc, err := ParseDocument(data)
		if err != nil {
			return err
		}
		*c = NewDocumentContent(doc)
		return nil
	}
	return fmt.Errorf("%w: content must be a string or an object", ErrNotDocument)
}
