package visibility

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/blogman/internal/editorjs"
	"github.com/hitoshi/blogman/internal/model"
)

func samplePost() *model.Post {
	created := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	return &model.Post{
		ID:         "p1",
		Title:      "タイトル",
		Content:    editorjs.NewHTMLContent("<p>x</p>"),
		Slug:       "title",
		AuthorID:   "A",
		AuthorName: "Alice",
		Tags:       []string{"go"},
		Status:     model.PostStatusPublished,
		IsActive:   true,
		Likes:      []string{"B", "C"},
		Comments: []model.Comment{
			{ID: "c1", PostID: "p1", Content: "nice", AuthorID: "B", AuthorName: "Bob", CreatedAt: created, UpdatedAt: created},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestIsVisible(t *testing.T) {
	owner := &model.Viewer{ID: "A"}
	other := &model.Viewer{ID: "B"}

	tests := []struct {
		name     string
		isActive bool
		status   model.PostStatus
		viewer   *model.Viewer
		want     bool
	}{
		{name: "非アクティブ・他人", isActive: false, status: model.PostStatusPublished, viewer: other, want: false},
		{name: "非アクティブ・作成者", isActive: false, status: model.PostStatusPublished, viewer: owner, want: true},
		{name: "非アクティブ・未認証", isActive: false, status: model.PostStatusPublished, viewer: nil, want: false},
		{name: "公開・未認証", isActive: true, status: model.PostStatusPublished, viewer: nil, want: true},
		{name: "公開・他人", isActive: true, status: model.PostStatusPublished, viewer: other, want: true},
		{name: "下書き・他人", isActive: true, status: model.PostStatusDraft, viewer: other, want: false},
		{name: "下書き・未認証", isActive: true, status: model.PostStatusDraft, viewer: nil, want: false},
		{name: "下書き・作成者", isActive: true, status: model.PostStatusDraft, viewer: owner, want: true},
		{name: "アーカイブ・未認証", isActive: true, status: model.PostStatusArchived, viewer: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := samplePost()
			post.IsActive = tt.isActive
			post.Status = tt.status
			assert.Equal(t, tt.want, IsVisible(post, tt.viewer))
		})
	}

	assert.False(t, IsVisible(nil, owner))
}

func TestProject_Anonymous(t *testing.T) {
	view := Project(samplePost(), nil, Options{})

	assert.False(t, view.Full)
	assert.Nil(t, view.IsLiked)
	assert.Equal(t, 2, view.LikesCount)
	assert.Equal(t, 1, view.CommentsCount)

	b, err := json.Marshal(view)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	keys := make([]string, 0, len(got))
	for k := range got {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{
		"id", "title", "content", "slug", "author", "tags",
		"createdAt", "updatedAt", "likesCount", "commentsCount",
	}, keys)
	assert.NotContains(t, got, "isLiked")
	assert.NotContains(t, got, "likes")
	assert.NotContains(t, got, "comments")
}

func TestProject_Authenticated(t *testing.T) {
	t.Run("いいね済み", func(t *testing.T) {
		view := Project(samplePost(), &model.Viewer{ID: "B"}, Options{})
		require.NotNil(t, view.IsLiked)
		assert.True(t, *view.IsLiked)
		assert.True(t, view.Full)
		require.Len(t, view.Comments, 1)
		assert.Equal(t, AuthorRef{ID: "B", Name: "Bob"}, view.Comments[0].Author)
	})

	t.Run("未いいねはfalseとして出力される", func(t *testing.T) {
		view := Project(samplePost(), &model.Viewer{ID: "Z"}, Options{})
		b, err := json.Marshal(view)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, false, got["isLiked"])
		assert.Contains(t, got, "likes")
		assert.Contains(t, got, "comments")
		assert.Contains(t, got, "isActive")
		assert.Contains(t, got, "status")
	})

	t.Run("空のコレクションは配列として出力される", func(t *testing.T) {
		post := samplePost()
		post.Likes = nil
		post.Comments = nil
		post.Tags = nil
		b, err := json.Marshal(Project(post, &model.Viewer{ID: "A"}, Options{}))
		require.NoError(t, err)
		assert.Contains(t, string(b), `"likes":[]`)
		assert.Contains(t, string(b), `"comments":[]`)
		assert.Contains(t, string(b), `"tags":[]`)
	})
}

func TestProject_DisplayOffset(t *testing.T) {
	post := samplePost()
	view := Project(post, &model.Viewer{ID: "A"}, Options{DisplayOffset: -3 * time.Hour})

	assert.True(t, view.CreatedAt.Equal(post.CreatedAt), "瞬間は変わらないこと")
	assert.Equal(t, 9, view.CreatedAt.Hour())
	_, offset := view.CreatedAt.Zone()
	assert.Equal(t, -3*60*60, offset)
	assert.Equal(t, 9, view.Comments[0].CreatedAt.Hour())

	// 保存値には適用されないこと
	assert.Equal(t, 12, post.CreatedAt.Hour())
	assert.Equal(t, time.UTC, post.CreatedAt.Location())

	b, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"createdAt":"2025-01-02T09:00:00-03:00"`)
}

func TestProject_DisplayOffsetAppliedOnce(t *testing.T) {
	post := samplePost()
	opts := Options{DisplayOffset: -3 * time.Hour}

	first := Project(post, nil, opts)
	second := Project(post, nil, opts)

	assert.Equal(t, first.CreatedAt.Hour(), second.CreatedAt.Hour())
}

func TestIsOwner(t *testing.T) {
	post := samplePost()
	assert.True(t, IsOwner(post, &model.Viewer{ID: "A"}))
	assert.False(t, IsOwner(post, &model.Viewer{ID: "B"}))
	assert.False(t, IsOwner(post, nil))
}
