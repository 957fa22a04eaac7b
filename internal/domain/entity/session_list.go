package entity

// MaxSessions caps how many refresh tokens a user may hold at once.
// Beyond it, the oldest session is evicted first.
const MaxSessions = 5

// SessionList is the ordered set of currently valid refresh tokens for a
// user, oldest first. It is a revocation allow-list: membership means the
// token has not been rotated away or revoked. Expiry is enforced by the
// token signature, not by the list.
type SessionList []string

// Add appends a token and truncates to the MaxSessions most recent.
func (s *SessionList) Add(token string) {
	list := append(*s, token)
	if len(list) > MaxSessions {
		list = list[len(list)-MaxSessions:]
	}
	*s = list
}

// Remove filters out an exact match. Absence is a no-op.
func (s *SessionList) Remove(token string) {
	list := *s
	kept := list[:0]
	for _, t := range list {
		if t != token {
			kept = append(kept, t)
		}
	}
	*s = kept
}

// Contains reports whether token is still a live session.
func (s SessionList) Contains(token string) bool {
	for _, t := range s {
		if t == token {
			return true
		}
	}
	return false
}

// Clear revokes every session.
func (s *SessionList) Clear() {
	*s = SessionList{}
}
