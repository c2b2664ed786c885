// Package session holds the in-memory snapshot of the signed-in user.
//
// The snapshot is a convenience copy for the presentation layer; the store
// record stays authoritative. The service layer re-calls SetUser after every
// committed write to the signed-in user's own record, so the two cannot
// silently diverge. The session is passed explicitly to whoever needs it
// instead of living in a package-level variable.
package session

import (
	"tweetmemo/internal/models"
)

type Session struct {
	user *models.SessionUser
}

func NewSession() *Session {
	return &Session{}
}

// SetUser replaces the snapshot with a deep copy of the given record.
func (s *Session) SetUser(user *models.User) {
	snapshot := &models.SessionUser{
		ID:          user.ID,
		FullName:    user.FullName,
		Username:    user.Username,
		ProfileText: user.ProfileText,
	}
	if user.ProfileImage != nil {
		snapshot.ProfileImage = make([]byte, len(user.ProfileImage))
		copy(snapshot.ProfileImage, user.ProfileImage)
	}
	if user.FollowIDs != nil {
		snapshot.FollowIDs = make([]int64, len(user.FollowIDs))
		copy(snapshot.FollowIDs, user.FollowIDs)
	}
	s.user = snapshot
}

// Clear drops the snapshot. A nil snapshot is the signed-out state and is
// valid; callers must handle it.
func (s *Session) Clear() {
	s.user = nil
}

// User returns the cached snapshot, or nil when signed out.
func (s *Session) User() *models.SessionUser {
	return s.user
}

// IsCurrent reports whether id is the signed-in user.
func (s *Session) IsCurrent(id int64) bool {
	return s.user != nil && s.user.ID == id
}
