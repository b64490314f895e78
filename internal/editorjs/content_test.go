package editorjs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_PreservesRepresentation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantDoc bool
	}{
		{name: "文書オブジェクト", input: `{"time":1,"blocks":[{"id":"a","type":"paragraph","data":{"text":"x"}}]}`, wantDoc: true},
		{name: "HTML文字列", input: `"<p>hello</p>"`, wantDoc: false},
		{name: "文書を文字列化したもの", input: `"{\"time\":1,\"blocks\":[]}"`, wantDoc: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Content
			require.NoError(t, json.Unmarshal([]byte(tt.input), &c))
			assert.Equal(t, tt.wantDoc, c.IsDocument())

			out, err := json.Marshal(c)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}
}

func TestContent_InStruct(t *testing.T) {
	var body struct {
		Title   string  `json:"title"`
		Content Content `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","content":"<p>x</p>"}`), &body))

	html, ok := body.Content.HTML()
	require.True(t, ok)
	assert.Equal(t, "<p>x</p>", html)
	_, ok = body.Content.Document()
	assert.False(t, ok)
}

func TestContent_RejectsInvalidShapes(t *testing.T) {
	for _, input := range []string{`{"foo":1}`, `123`, `[1,2]`, `true`} {
		var c Content
		assert.Error(t, json.Unmarshal([]byte(input), &c), input)
	}
}

func TestContent_IsEmpty(t *testing.T) {
	assert.True(t, Content{}.IsEmpty())
	assert.True(t, NewHTMLContent("   ").IsEmpty())
	assert.False(t, NewHTMLContent("<p>x</p>").IsEmpty())
	assert.False(t, NewDocumentContent(&Document{}).IsEmpty())

	var c Content
	require.NoError(t, json.Unmarshal([]byte(`null`), &c))
	assert.True(t, c.IsEmpty())
}
