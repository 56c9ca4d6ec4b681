// Package session keeps per-user conversation state: the attached video, its
// transcript, the chosen response language and a bounded Q&A history.
//
// Sessions live in memory only and expire after an idle timeout. Expiry is
// sliding: every access through the Store extends the session by the full
// timeout window.
package session

// SessionService defines the session store operations consumed by the video service.
type SessionService interface {
	// GetOrCreate returns the live session for the user, creating an empty one if needed.
	GetOrCreate(userID int64) *UserSession

	// Clear resets the user's session to empty, keeping its identity.
	Clear(userID int64)

	// Delete removes the user's session entirely.
	Delete(userID int64)

	// ActiveCount returns the number of tracked sessions.
	ActiveCount() int

	// PurgeExpired removes idle sessions and returns how many were removed.
	PurgeExpired() int
}

// Ensure Store implements SessionService
var _ SessionService = (*Store)(nil)
