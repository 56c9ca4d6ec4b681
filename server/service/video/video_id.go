package video

import (
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?youtube\.com/watch\?(?:.*&)?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
}

// IsValidVideoID reports whether id looks like an 11-character video ID.
func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// ExtractVideoID accepts a bare video ID or a watch/short/embed URL.
func ExtractVideoID(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if IsValidVideoID(input) {
		return input, true
	}
	for _, p := range videoURLPatterns {
		if m := p.FindStringSubmatch(input); m != nil {
			return m[1], true
		}
	}
	return "", false
}
