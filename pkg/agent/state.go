package agent

import (
	"sync"
	"time"
)

// RuntimeState holds the mutable per-process state shared between the
// pipeline and the RPC handlers: the pause flag, its optional expiry, and
// the recorded self identity per platform. One mutex guards all of it
// because the fields are read and written together.
type RuntimeState struct {
	mu         sync.Mutex
	paused     bool
	pauseUntil time.Time
	selfIDs    map[string]string
	startedAt  time.Time

	now func() time.Time
}

// NewRuntimeState creates the state with the process start time recorded
// for uptime reporting.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{
		selfIDs:   make(map[string]string),
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Pause suspends replying. A zero duration pauses indefinitely; otherwise
// the pause expires on its own at the next gate check past the deadline.
func (s *RuntimeState) Pause(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	if d > 0 {
		s.pauseUntil = s.now().Add(d)
	} else {
		s.pauseUntil = time.Time{}
	}
}

// Resume clears the pause flag and any deadline.
func (s *RuntimeState) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.pauseUntil = time.Time{}
}

// CheckPaused reports whether replying is suspended. An expired timed
// pause is cleared here as a side effect, which is what makes timed
// pauses auto-resume.
func (s *RuntimeState) CheckPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return false
	}
	if !s.pauseUntil.IsZero() && s.now().After(s.pauseUntil) {
		s.paused = false
		s.pauseUntil = time.Time{}
		return false
	}
	return true
}

// PauseInfo returns the pause flag and deadline without the auto-clear
// side effect, for status reporting.
func (s *RuntimeState) PauseInfo() (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused, s.pauseUntil
}

// SetSelfID records the bot's own identity on a platform, used for
// self-message and reply-to-bot detection.
func (s *RuntimeState) SetSelfID(platform, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selfIDs[platform] = id
}

// SelfID returns the recorded identity for a platform, empty when the
// platform has not connected yet.
func (s *RuntimeState) SelfID(platform string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfIDs[platform]
}

// Uptime returns the time since process start.
func (s *RuntimeState) Uptime() time.Duration {
	return time.Since(s.startedAt)
}
