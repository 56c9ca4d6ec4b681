package video

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "abcdefghijk.txt", "  hello\n\nworld  \t again ")
	writeFile(t, dir, "abcdefghijk.lang", "hi\n")
	writeFile(t, dir, "emptyvideo0.txt", " \n ")

	f := NewFileFetcher(dir, 0)
	assert.Equal(t, DefaultMaxTranscriptChars, f.MaxChars)

	got, err := f.Fetch(context.Background(), "abcdefghijk")
	require.NoError(t, err)
	assert.Equal(t, "hello world again", got.Text)
	assert.Equal(t, "hi", got.LanguageCode)
	assert.Equal(t, 17, got.CharCount)
	assert.False(t, got.Truncated)

	_, err = f.Fetch(context.Background(), "missingvid0")
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)

	_, err = f.Fetch(context.Background(), "emptyvideo0")
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)

	_, err = f.Fetch(context.Background(), "../etc/pass")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTranscriptUnavailable)
}

func TestFileFetcher_Truncates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "longvideo00.txt", strings.Repeat("ab ", 10))
	writeFile(t, dir, "unicodevid0.txt", "नमस्ते दुनिया")

	f := NewFileFetcher(dir, 5)

	got, err := f.Fetch(context.Background(), "longvideo00")
	require.NoError(t, err)
	assert.Equal(t, "ab ab", got.Text)
	assert.True(t, got.Truncated)
	assert.Equal(t, 5, got.CharCount)
	assert.Equal(t, "en", got.LanguageCode)

	got, err = f.Fetch(context.Background(), "unicodevid0")
	require.NoError(t, err)
	assert.Equal(t, []rune("नमस्ते दुनिया")[:5], []rune(got.Text))
}

func TestFileFetcher_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileFetcher(t.TempDir(), 0).Fetch(ctx, "abcdefghijk")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{" https://www.youtube.com/watch?v=dQw4w9WgXcQ ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ", true},
		{"youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"short", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
