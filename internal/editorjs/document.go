// Package editorjs はブロック形式のリッチテキスト文書のデータモデルとJSONコーデックを提供する。
package editorjs

import (
	"encoding/json"
	"fmt"
)

// 既知のブロック種別。
const (
	TypeHeader    = "header"
	TypeParagraph = "paragraph"
	TypeList      = "list"
	TypeChecklist = "checklist"
	TypeQuote     = "quote"
	TypeCode      = "code"
	TypeImage     = "image"
	TypeDelimiter = "delimiter"
	TypeTable     = "table"
)

var knownTypes = map[string]bool{
	TypeHeader:    true,
	TypeParagraph: true,
	TypeList:      true,
	TypeChecklist: true,
	TypeQuote:     true,
	TypeCode:      true,
	TypeImage:     true,
	TypeDelimiter: true,
	TypeTable:     true,
}

// IsKnownType はブロック種別が既知のものかどうかを返す。
func IsKnownType(blockType string) bool {
	return knownTypes[blockType]
}

// Document はブロック形式の文書。
type Document struct {
	// Time は作成時刻（ミリ秒）。表示上の情報であり解釈しない。
	Time    int64
	Blocks  []Block
	Version string
	Extra   fields
}

// Block は文書を構成する1つのブロック。
type Block struct {
	ID    string
	Type  string
	Data  BlockData
	Tunes json.RawMessage
	Extra fields
}

// MarshalJSON はDocumentをエンコードする。blocksは常に配列として出力する。
func (d Document) MarshalJSON() ([]byte, error) {
	out := d.Extra.clone()
	// 整数でないtimeはExtraに残っているため、Timeが未設定なら上書きしない
	if _, kept := out["time"]; !kept || d.Time != 0 {
		if err := out.set("time", d.Time); err != nil {
			return nil, err
		}
	}
	blocks := d.Blocks
	if blocks == nil {
		blocks = []Block{}
	}
	if err := out.set("blocks", blocks); err != nil {
		return nil, err
	}
	if d.Version != "" {
		if err := out.set("version", d.Version); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON はJSONオブジェクトからDocumentをデコードする。
func (d *Document) UnmarshalJSON(data []byte) error {
	f, ok := decodeFields(data)
	if !ok {
		return fmt.Errorf("editorjs: document must be a JSON object")
	}
	doc := Document{}
	if t := f.takeInt64("time"); t != nil {
		doc.Time = *t
	}
	if v := f.takeString("version"); v != nil {
		doc.Version = *v
	}
	items, ok := f.takeArray("blocks")
	if !ok {
		return fmt.Errorf("editorjs: document blocks must be an array")
	}
	doc.Blocks = make([]Block, len(items))
	for i, raw := range items {
		if err := json.Unmarshal(raw, &doc.Blocks[i]); err != nil {
			return fmt.Errorf("editorjs: block %d: %w", i, err)
		}
	}
	doc.Extra = f
	*d = doc
	return nil
}

// MarshalJSON はBlockをエンコードする。
func (b Block) MarshalJSON() ([]byte, error) {
	out := b.Extra.clone()
	if b.ID != "" {
		if err := out.set("id", b.ID); err != nil {
			return nil, err
		}
	}
	if err := out.set("type", b.Type); err != nil {
		return nil, err
	}
	if b.Data != nil {
		if err := out.set("data", b.Data); err != nil {
			return nil, err
		}
	}
	if b.Tunes != nil {
		out["tunes"] = b.Tunes
	}
	return json.Marshal(out)
}

// UnmarshalJSON はJSONオブジェクトからBlockをデコードする。
// dataは種別に応じたバリアントに変換される。
func (b *Block) UnmarshalJSON(data []byte) error {
	f, ok := decodeFields(data)
	if !ok {
		return fmt.Errorf("editorjs: block must be a JSON object")
	}
	blk := Block{}
	if id := f.takeString("id"); id != nil {
		blk.ID = *id
	}
	typ := f.takeString("type")
	if typ == nil {
		return fmt.Errorf("editorjs: block type must be a string")
	}
	blk.Type = *typ
	if raw, ok := f["data"]; ok {
		delete(f, "data")
		blk.Data = decodeData(blk.Type, raw)
	}
	if raw, ok := f["tunes"]; ok {
		delete(f, "tunes")
		blk.Tunes = raw
	}
	blk.Extra = f
	*b = blk
	return nil
}
