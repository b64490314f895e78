package editorjs

import (
	"bytes"
	"encoding/json"
)

// fields はJSONオブジェクトのキーと生の値の組を保持する。
// 解釈しないキーを再エンコード時にそのまま書き戻すために使う。
type fields map[string]json.RawMessage

// decodeFields はJSONオブジェクトをfieldsに分解する。
// オブジェクト以外（null、配列、スカラー）の場合はokにfalseを返す。
func decodeFields(raw json.RawMessage) (fields, bool) {
	if !isObject(raw) {
		return nil, false
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	if f == nil {
		f = fields{}
	}
	return f, true
}

// takeString はkeyの値が文字列であれば取り出してfから削除する。
// 値が存在しない、または文字列でない場合はnilを返し、fには手を付けない。
func (f fields) takeString(key string) *string {
	raw, ok := f[key]
	if !ok || !isString(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	delete(f, key)
	return &s
}

// takeInt はkeyの値が整数であれば取り出してfから削除する。
func (f fields) takeInt(key string) *int {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	delete(f, key)
	return &n
}

// takeInt64 はkeyの値が整数であれば取り出してfから削除する。
func (f fields) takeInt64(key string) *int64 {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	delete(f, key)
	return &n
}

// takeBool はkeyの値が真偽値であれば取り出してfから削除する。
func (f fields) takeBool(key string) *bool {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	delete(f, key)
	return &b
}

// takeArray はkeyの値が配列であれば要素ごとの生の値を取り出してfから削除する。
func (f fields) takeArray(key string) ([]json.RawMessage, bool) {
	raw, ok := f[key]
	if !ok || !isArray(raw) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	delete(f, key)
	return items, true
}

// clone はfの浅いコピーを返す。nilの場合は空のfieldsを返す。
func (f fields) clone() fields {
	out := make(fields, len(f)+4)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// set はvをエンコードしてkeyに格納する。
func (f fields) set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f[key] = raw
	return nil
}

// setString はsがnilでなければkeyに格納する。
func (f fields) setString(key string, s *string) error {
	if s == nil {
		return nil
	}
	return f.set(key, *s)
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isObject(raw json.RawMessage) bool { return firstByte(raw) == '{' }
func isArray(raw json.RawMessage) bool  { return firstByte(raw) == '[' }
func isString(raw json.RawMessage) bool { return firstByte(raw) == '"' }
func isNull(raw json.RawMessage) bool   { return bytes.Equal(bytes.TrimSpace(raw), []byte("null")) }
