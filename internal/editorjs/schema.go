package editorjs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrNotDocument はJSONがブロック形式の文書として解釈できないことを示す。
var ErrNotDocument = errors.New("editorjs: not a block document")

// documentSchemaJSON はブロック形式の文書とみなす最小限の形。
// blocksの各要素のdataは種別ごとにゆるく扱うため、ここでは検査しない。
const documentSchemaJSON = `{
  "type": "object",
  "required": ["blocks"],
  "properties": {
    "time": {"type": "integer"},
    "version": {"type": "string"},
    "blocks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "id": {"type": "string"},
          "type": {"type": "string"}
        }
      }
    }
  }
}`

var documentSchema = mustCompileSchema(documentSchemaJSON)

func mustCompileSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("editorjs: invalid document schema: %v", err))
	}
	return schema
}

// validateDocument はJSONがブロック形式の文書の形をしているか検証する。
func validateDocument(data []byte) error {
	result, err := documentSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrNotDocument, strings.Join(msgs, "; "))
	}
	return nil
}

// LooksLikeDocument は文字列がブロック形式の文書のJSONかどうかを返す。
func LooksLikeDocument(s string) bool {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	return validateDocument([]byte(trimmed)) == nil
}

// ParseDocument はJSONを検証したうえでDocumentにデコードする。
// 文書の形をしていない場合はErrNotDocumentをラップしたエラーを返す。
func ParseDocument(data []byte) (*Document, error) {
	if !isObject(data) {
		return nil, ErrNotDocument
	}
	if err := validateDocument(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocument, err)
	}
	return &doc, nil
}
