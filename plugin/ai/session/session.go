package session

import (
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

const (
	// MaxHistory is the maximum number of exchanges to keep in a session.
	// This implements a sliding window to prevent unbounded growth.
	MaxHistory = 20

	// DefaultLanguage is the response language of a fresh session.
	DefaultLanguage = "english"
)

// State is the lifecycle state of a session.
type State int

const (
	// StateEmpty means no video is attached.
	StateEmpty State = iota
	// StateLoaded means a video and its transcript are attached.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	default:
		return "empty"
	}
}

// Exchange is one question and its answer.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// UserSession holds the conversation state of a single user.
// All methods are safe for concurrent use.
type UserSession struct {
	mu  sync.Mutex
	now func() time.Time

	userID       int64
	sessionID    string
	videoID      string
	videoTitle   string
	transcript   string
	language     string
	history      []Exchange
	createdAt    time.Time
	lastActiveAt time.Time
}

// Snapshot is a copy of a session's state, detached from the store.
type Snapshot struct {
	UserID       int64      `json:"user_id"`
	SessionID    string     `json:"session_id"`
	State        string     `json:"state"`
	VideoID      string     `json:"video_id,omitempty"`
	VideoTitle   string     `json:"video_title,omitempty"`
	Transcript   string     `json:"-"`
	Language     string     `json:"language"`
	History      []Exchange `json:"history"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
}

func newUserSession(userID int64, now func() time.Time) *UserSession {
	ts := now()
	return &UserSession{
		now:          now,
		userID:       userID,
		sessionID:    shortuuid.New(),
		language:     DefaultLanguage,
		history:      make([]Exchange, 0, MaxHistory),
		createdAt:    ts,
		lastActiveAt: ts,
	}
}

// UserID returns the owner of the session.
func (s *UserSession) UserID() int64 {
	return s.userID
}

// SessionID returns the generated identifier of this session instance.
func (s *UserSession) SessionID() string {
	return s.sessionID
}

// AttachVideo sets the video and transcript and resets the conversation history.
func (s *UserSession) AttachVideo(videoID, transcript, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		title = "Video " + videoID
	}
	s.videoID = videoID
	s.transcript = transcript
	s.videoTitle = title
	s.history = make([]Exchange, 0, MaxHistory)
	s.touchLocked()
}

// RecordExchange appends a Q&A pair, dropping the oldest pairs beyond MaxHistory.
func (s *UserSession) RecordExchange(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Exchange{Question: question, Answer: answer})
	if len(s.history) > MaxHistory {
		trimmed := make([]Exchange, MaxHistory)
		copy(trimmed, s.history[len(s.history)-MaxHistory:])
		s.history = trimmed
	}
	s.touchLocked()
}

// SetLanguage stores the lower-cased language code.
func (s *UserSession) SetLanguage(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.language = strings.ToLower(strings.TrimSpace(code))
	s.touchLocked()
}

// Language returns the response language.
func (s *UserSession) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// HasVideo reports whether both a video ID and a transcript are attached.
func (s *UserSession) HasVideo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasVideoLocked()
}

// State returns the lifecycle state.
func (s *UserSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasVideoLocked() {
		return StateLoaded
	}
	return StateEmpty
}

// RecentHistory returns up to n of the most recent exchanges, oldest first.
// n <= 0 returns the whole history.
func (s *UserSession) RecentHistory(n int) []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.history
	if n > 0 && n < len(history) {
		history = history[len(history)-n:]
	}
	result := make([]Exchange, len(history))
	copy(result, history)
	return result
}

// Snapshot returns a copy of the session state.
func (s *UserSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := StateEmpty
	if s.hasVideoLocked() {
		state = StateLoaded
	}
	history := make([]Exchange, len(s.history))
	copy(history, s.history)

	return Snapshot{
		UserID:       s.userID,
		SessionID:    s.sessionID,
		State:        state.String(),
		VideoID:      s.videoID,
		VideoTitle:   s.videoTitle,
		Transcript:   s.transcript,
		Language:     s.language,
		History:      history,
		CreatedAt:    s.createdAt,
		LastActiveAt: s.lastActiveAt,
	}
}

// reset returns the session to the empty state, keeping identity.
func (s *UserSession) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.videoID = ""
	s.videoTitle = ""
	s.transcript = ""
	s.language = DefaultLanguage
	s.history = make([]Exchange, 0, MaxHistory)
	s.touchLocked()
}

func (s *UserSession) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

func (s *UserSession) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActiveAt)
}

func (s *UserSession) touchLocked() {
	s.lastActiveAt = s.now()
}

func (s *UserSession) hasVideoLocked() bool {
	return s.videoID != "" && s.transcript != ""
}
