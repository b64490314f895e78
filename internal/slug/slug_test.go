package slug

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveBase(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "トルコ語の文字", title: "Çöp Şişe", want: "cop-sise"},
		{name: "空白と記号", title: "  Hello   World!!  ", want: "hello-world"},
		{name: "大文字のİ", title: "İSTANBUL Günü", want: "istanbul-gunu"},
		{name: "ğ", title: "Dağ", want: "dag"},
		{name: "連続ハイフン", title: "a -- b", want: "a-b"},
		{name: "前後のハイフン", title: "--go--", want: "go"},
		{name: "数字", title: "Go 1.25 Release", want: "go-125-release"},
		{name: "表にない非ASCII文字は除去", title: "Café über", want: "caf-uber"},
		{name: "スラッグにできる文字がない", title: "!!! ???", want: FallbackBase},
		{name: "空文字列", title: "", want: FallbackBase},
		{name: "日本語のみ", title: "こんにちは", want: FallbackBase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveBase(tt.title))
		})
	}
}

func TestAssignUnique_BaseAvailable(t *testing.T) {
	calls := 0
	got, err := AssignUnique(context.Background(), "foo", func(ctx context.Context, s string) (bool, error) {
		calls++
		return false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "foo", got)
	assert.Equal(t, 1, calls)
}

func TestAssignUnique_Collision(t *testing.T) {
	got, err := AssignUnique(context.Background(), "foo", func(ctx context.Context, s string) (bool, error) {
		return s == "foo", nil
	})

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^foo-[a-z0-9]{6}$`), got)
}

func TestAssignUnique_Exhausted(t *testing.T) {
	calls := 0
	seen := map[string]bool{}
	_, err := AssignUnique(context.Background(), "foo", func(ctx context.Context, s string) (bool, error) {
		calls++
		seen[s] = true
		return true, nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, MaxAttempts, calls)
	assert.True(t, seen["foo"])
}

func TestAssignUnique_ExistsError(t *testing.T) {
	dbErr := errors.New("connection refused")
	_, err := AssignUnique(context.Background(), "foo", func(ctx context.Context, s string) (bool, error) {
		return false, dbErr
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, dbErr))
	assert.False(t, errors.Is(err, ErrExhausted))
}

func TestAssigner_DeterministicWithSeed(t *testing.T) {
	taken := func(ctx context.Context, s string) (bool, error) { return s == "foo", nil }

	a1 := NewAssigner(rand.New(rand.NewPCG(1, 2)))
	a2 := NewAssigner(rand.New(rand.NewPCG(1, 2)))

	s1, err := a1.AssignUnique(context.Background(), "foo", taken)
	require.NoError(t, err)
	s2, err := a2.AssignUnique(context.Background(), "foo", taken)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
}
