package editorjs

import (
	"encoding/json"
)

// BlockData はブロック種別ごとのdataを表すタグ付き共用体。
// 既知の種別ごとに1つのバリアントを持ち、未知の種別はOpaqueDataになる。
type BlockData interface {
	isBlockData()
}

// HeaderData はheaderブロックのdata。
type HeaderData struct {
	Text    *string
	Level   *int
	Caption *string
	Extra   fields
}

// ParagraphData はparagraphブロックのdata。
type ParagraphData struct {
	Text    *string
	Caption *string
	Extra   fields
}

// QuoteData はquoteブロックのdata。
type QuoteData struct {
	Text    *string
	Caption *string
	Extra   fields
}

// ListData はlistブロックのdata。
// Itemsがnilの場合はitemsキーが存在しない（または配列でない）ことを表す。
type ListData struct {
	Style *string
	Items []ListItem
	Extra fields
}

// ListItem はリストの1項目。
// 文字列形式とネスト形式（{content, items}）の両方を表現する。
type ListItem struct {
	Content *string
	Items   []ListItem
	Nested  bool
	Extra   fields
	// Raw は文字列でもオブジェクトでもない項目の生の値。
	Raw json.RawMessage
}

// ChecklistData はchecklistブロックのdata。
type ChecklistData struct {
	Items []ChecklistItem
	Extra fields
}

// ChecklistItem はチェックリストの1項目。
type ChecklistItem struct {
	Text    *string
	Checked *bool
	Extra   fields
	Raw     json.RawMessage
}

// CodeData はcodeブロックのdata。
type CodeData struct {
	Code     *string
	Language *string
	Extra    fields
}

// ImageData はimageブロックのdata。
// fileはコンテンツではないため解釈せずExtraに保持する。
type ImageData struct {
	Caption *string
	Extra   fields
}

// DelimiterData はdelimiterブロックのdata。
type DelimiterData struct {
	Extra fields
}

// TableData はtableブロックのdata。
type TableData struct {
	Rows  []TableRow
	Extra fields
}

// TableRow はテーブルの1行。配列でない行はRawに保持される。
type TableRow struct {
	Cells []TableCell
	Raw   json.RawMessage
}

// TableCell はテーブルのセル。文字列でないセルはRawに保持される。
type TableCell struct {
	Text *string
	Raw  json.RawMessage
}

// OpaqueData は未知の種別、またはdataがオブジェクトでないブロックの生のdata。
type OpaqueData struct {
	Raw json.RawMessage
}

func (HeaderData) isBlockData()    {}
func (ParagraphData) isBlockData() {}
func (QuoteData) isBlockData()     {}
func (ListData) isBlockData()      {}
func (ChecklistData) isBlockData() {}
func (CodeData) isBlockData()      {}
func (ImageData) isBlockData()     {}
func (DelimiterData) isBlockData() {}
func (TableData) isBlockData()     {}
func (OpaqueData) isBlockData()    {}

// FileURL はfile.urlを返す。存在しない、または文字列でない場合は空文字列を返す。
func (d ImageData) FileURL() string {
	raw, ok := d.Extra["file"]
	if !ok || !isObject(raw) {
		return ""
	}
	var file struct {
		URL json.RawMessage `json:"url"`
	}
	if err := json.Unmarshal(raw, &file); err != nil || !isString(file.URL) {
		return ""
	}
	var url string
	if err := json.Unmarshal(file.URL, &url); err != nil {
		return ""
	}
	return url
}

// decodeData はブロック種別に応じてdataをデコードする。
// dataがオブジェクトでない場合は種別に関わらずOpaqueDataを返す。
func decodeData(blockType string, raw json.RawMessage) BlockData {
	if !IsKnownType(blockType) {
		return OpaqueData{Raw: raw}
	}
	f, ok := decodeFields(raw)
	if !ok {
		return OpaqueData{Raw: raw}
	}

	switch blockType {
	case TypeHeader:
		return HeaderData{
			Text:    f.takeString("text"),
			Level:   f.takeInt("level"),
			Caption: f.takeString("caption"),
			Extra:   f,
		}
	case TypeParagraph:
		return ParagraphData{Text: f.takeString("text"), Caption: f.takeString("caption"), Extra: f}
	case TypeQuote:
		return QuoteData{Text: f.takeString("text"), Caption: f.takeString("caption"), Extra: f}
	case TypeList:
		d := ListData{Style: f.takeString("style")}
		if items, ok := f.takeArray("items"); ok {
			d.Items = decodeListItems(items)
		}
		d.Extra = f
		return d
	case TypeChecklist:
		d := ChecklistData{}
		if items, ok := f.takeArray("items"); ok {
			d.Items = make([]ChecklistItem, len(items))
			for i, item := range items {
				d.Items[i] = decodeChecklistItem(item)
			}
		}
		d.Extra = f
		return d
	case TypeCode:
		return CodeData{Code: f.takeString("code"), Language: f.takeString("language"), Extra: f}
	case TypeImage:
		return ImageData{Caption: f.takeString("caption"), Extra: f}
	case TypeDelimiter:
		return DelimiterData{Extra: f}
	case TypeTable:
		d := TableData{}
		if rows, ok := f.takeArray("content"); ok {
			d.Rows = make([]TableRow, len(rows))
			for i, row := range rows {
				d.Rows[i] = decodeTableRow(row)
			}
		}
		d.Extra = f
		return d
	}
	return OpaqueData{Raw: raw}
}

func decodeListItems(items []json.RawMessage) []ListItem {
	out := make([]ListItem, len(items))
	for i, raw := range items {
		switch {
		case isString(raw):
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				out[i] = ListItem{Raw: raw}
				continue
			}
			out[i] = ListItem{Content: &s}
		case isObject(raw):
			f, ok := decodeFields(raw)
			if !ok {
				out[i] = ListItem{Raw: raw}
				continue
			}
			item := ListItem{Nested: true, Content: f.takeString("content")}
			if children, ok := f.takeArray("items"); ok {
				item.Items = decodeListItems(children)
			}
			item.Extra = f
			out[i] = item
		default:
			out[i] = ListItem{Raw: raw}
		}
	}
	return out
}

func decodeChecklistItem(raw json.RawMessage) ChecklistItem {
	f, ok := decodeFields(raw)
	if !ok {
		return ChecklistItem{Raw: raw}
	}
	return ChecklistItem{
		Text:    f.takeString("text"),
		Checked: f.takeBool("checked"),
		Extra:   f,
	}
}

func decodeTableRow(raw json.RawMessage) TableRow {
	if !isArray(raw) {
		return TableRow{Raw: raw}
	}
	var cells []json.RawMessage
	if err := json.Unmarshal(raw, &cells); err != nil {
		return TableRow{Raw: raw}
	}
	row := TableRow{Cells: make([]TableCell, len(cells))}
	for i, cell := range cells {
		if !isString(cell) {
			row.Cells[i] = TableCell{Raw: cell}
			continue
		}
		var s string
		if err := json.Unmarshal(cell, &s); err != nil {
			row.Cells[i] = TableCell{Raw: cell}
			continue
		}
		row.Cells[i] = TableCell{Text: &s}
	}
	return row
}

// MarshalJSON はHeaderDataをJSONオブジェクトにエンコードする。
func (d HeaderData) MarshalJSON() ([]byte, error) {
	out := d.Extra.clone()
	if err := out.setString("text", d.Text); err != nil {
		return nil, err
	}
	if d.Level != nil {
		if err := out.set("level", *d.Level); err != nil {
			return nil, err
		}
	}
	if err := out.setString("caption", d.Caption); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// MarshalJSON はParagraphDataをJSONオブジェクトにエンコードする。
func (d ParagraphData) MarshalJSON() ([]byte, error) {
	return marshalTextData(d.Extra, d.Text, d.Caption)
}

// MarshalJSON はQuoteDataをJSONオブジェクトにエンコードする。
func (d QuoteData) MarshalJSON() ([]byte, error) {
	return marshalTextData(d.Extra, d.Text, d.Caption)
}

func marshalTextData(extra fields, text, caption *string) ([]byte, error) {
	out := extra.clone()
	if err := out.setString("text", text); err != nil {
		return nil, err
	}
	if err := out.setString("caption", caption); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// MarshalJSON はListDataをJSONオブジェクトにエンコードする。
func (d ListData) MarshalJSON() ([]byte, error) {
	out := d.Extra.clone()
	if err := out.setString("style", d.Style); err != nil {
		return nil, err
	}
	if d.Items != nil {
		if err := out.set("items", d.Items); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// MarshalJSON はListItemを元の形式（文字列またはオブジェクト）でエンコードする。
func (i ListItem) MarshalJSON() ([]byte, error) {
	if i.Raw != nil {
		return i.Raw, nil
	}
	if !i.Nested {
		if i.Content == nil {
			return []byte(`""`), nil
		}
		return json.Marshal(*i.Content)
	}
	out := i.Extra.clone()
	if err := out.setString("content", i.Content); err != nil {
		return nil, err
	}
	if i.Items != nil {
		if err := out.set("items", i.Items); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// MarshalJSON はChecklistDataをJSONオブジェクトにエンコードする。
func (d ChecklistData) MarshalJSON() ([]byte, error) {
	out := d.Extra.clone()
	if d.Items != nil {
		if err := out.set("items", d.Items); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// MarshalJSON はChecklistItemをエンコードする。
func (i ChecklistItem) MarshalJSON() ([]byte, error) {
	if i.Raw != nil {
		return i.Raw, nil
	}
	out := i.Extra.clone()
	if err := out.setString("text", i.Text); err != nil {
		return nil, err
	}
	if i.Checked != nil {
		if err := out.set("checked", *i.Checked); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// MarshalJSON はCodeDataをJSONオブジェクトにエンコードする。
func (d CodeData) MarshalJSON() ([]byte, error) {
	out := d.Extra.clone()
	if err := out.setString("code", d.Code); err != nil {
		return nil, err
	}
	if err := out.setString("language", d.Language); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// MarshalJSON はImageDataをJSONオブジェクトにエンコードする。
func (d ImageData) MarshalJSON() ([]byte, error) {
	out := d.Extra.clone()
	if err := out.setString("caption", d.Caption); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// MarshalJSON はDelimiterDataをJSONオブジェクトにエンコードする。
func (d DelimiterData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Extra.clone())
}

// MarshalJSON はTableDataをJSONオブジェクトにエンコードする。
func (d TableData) MarshalJSON() ([]byte, error) {
	out := d.Extra.clone()
	if d.Rows != nil {
		if err := out.set("content", d.Rows); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// MarshalJSON はTableRowをエンコードする。
func (r TableRow) MarshalJSON() ([]byte, error) {
	if r.Raw != nil {
		return r.Raw, nil
	}
	cells := r.Cells
	if cells == nil {
		cells = []TableCell{}
	}
	return json.Marshal(cells)
}

// MarshalJSON はTableCellをエンコードする。
func (c TableCell) MarshalJSON() ([]byte, error) {
	if c.Raw != nil {
		return c.Raw, nil
	}
	if c.Text == nil {
		return []byte(`""`), nil
	}
	return json.Marshal(*c.Text)
}

// MarshalJSON は生のdataをそのまま返す。
func (d OpaqueData) MarshalJSON() ([]byte, error) {
	if d.Raw == nil {
		return []byte("null"), nil
	}
	return d.Raw, nil
}
