package session

import (
	"strings"
	"sync"
)

// TrackSelector decides which inbound audio track drives the animation.
// Exactly one track is analyzed at a time: the first eligible offer wins
// and stays selected until released. Web visitors carry a reserved identity
// prefix and are never animated, and the avatar's own identity is excluded
// so the loop can't feed back on itself.
type TrackSelector struct {
	mu           sync.Mutex
	userPrefix   string
	selfIdentity string
	activeTrack  string
}

// NewTrackSelector creates a selector. userPrefix is the reserved visitor
// prefix; selfIdentity is the avatar's own participant identity.
func NewTrackSelector(userPrefix, selfIdentity string) *TrackSelector {
	return &TrackSelector{userPrefix: userPrefix, selfIdentity: selfIdentity}
}

// Offer proposes a subscribed track and reports whether it was selected
func (s *TrackSelector) Offer(identity, trackID string) bool {
	if s.userPrefix != "" && strings.HasPrefix(identity, s.userPrefix) {
		return false
	}
	if identity == s.selfIdentity {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeTrack != "" {
		return false
	}
	s.activeTrack = trackID
	return true
}

// Release drops the selection if trackID is the active track, letting the
// next offer win.
func (s *TrackSelector) Release(trackID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeTrack != trackID {
		return false
	}
	s.activeTrack = ""
	return true
}

// Active returns the selected track ID, or "" when none is selected
func (s *TrackSelector) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTrack
}
