package video

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/hrygo/vidsage/store/cache"
)

// DefaultMaxTranscriptChars bounds how much transcript text is kept per video.
const DefaultMaxTranscriptChars = 15000

// ErrTranscriptUnavailable is returned when a video has no usable transcript.
var ErrTranscriptUnavailable = errors.New("transcript unavailable for this video")

// TranscriptFetcher loads a transcript from its source.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (*cache.TranscriptResult, error)
}

// FileFetcher reads transcripts from <Dir>/<videoID>.txt. An optional
// <videoID>.lang file holds the transcript's language code.
type FileFetcher struct {
	Dir      string
	MaxChars int
}

// NewFileFetcher creates a fetcher rooted at dir.
func NewFileFetcher(dir string, maxChars int) *FileFetcher {
	if maxChars <= 0 {
		maxChars = DefaultMaxTranscriptChars
	}
	return &FileFetcher{Dir: dir, MaxChars: maxChars}
}

// Fetch implements TranscriptFetcher.
func (f *FileFetcher) Fetch(ctx context.Context, videoID string) (*cache.TranscriptResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsValidVideoID(videoID) {
		return nil, errors.Errorf("invalid video id %q", videoID)
	}

	data, err := os.ReadFile(filepath.Join(f.Dir, videoID+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrTranscriptUnavailable, "video %s", videoID)
		}
		return nil, errors.Wrap(err, "read transcript")
	}

	text := strings.Join(strings.Fields(string(data)), " ")
	if text == "" {
		return nil, errors.Wrapf(ErrTranscriptUnavailable, "video %s: transcript is empty", videoID)
	}

	langCode := "en"
	if lang, err := os.ReadFile(filepath.Join(f.Dir, videoID+".lang")); err == nil {
		if code := strings.TrimSpace(string(lang)); code != "" {
			langCode = code
		}
	}

	text, truncated := truncateRunes(text, f.MaxChars)
	return &cache.TranscriptResult{
		VideoID:      videoID,
		Text:         text,
		LanguageCode: langCode,
		Truncated:    truncated,
		CharCount:    utf8.RuneCountInString(text),
	}, nil
}

func truncateRunes(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i], true
		}
		count++
	}
	return s, false
}
