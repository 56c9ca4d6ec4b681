// Package cache stores fetched transcripts in front of the transcript source:
// an in-process LRU (L1), an optional shared Redis tier (L2) and the fetcher (L3).
package cache

import "time"

// TranscriptResult is the cached outcome of fetching a video's transcript.
type TranscriptResult struct {
	VideoID      string    `json:"video_id"`
	Text         string    `json:"text"`
	LanguageCode string    `json:"language_code,omitempty"`
	Truncated    bool      `json:"truncated"`
	CharCount    int       `json:"char_count"`
	FetchedAt    time.Time `json:"fetched_at"`
}
