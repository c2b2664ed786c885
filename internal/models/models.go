package models

import (
	"time"
)

type User struct {
	ID           int64   `json:"id" db:"id"`
	FullName     string  `json:"fullname" db:"fullname"`
	Username     string  `json:"username" db:"username"`
	ProfileText  string  `json:"profileText" db:"profile_text"`
	ProfileImage []byte  `json:"-" db:"profile_image"`
	FollowIDs    []int64 `json:"followIds" db:"-"`
}

// Follows reports whether id is present in the user's follow list.
func (u *User) Follows(id int64) bool {
	for _, f := range u.FollowIDs {
		if f == id {
			return true
		}
	}
	return false
}

type Tweet struct {
	ID        int64      `json:"tweetId" db:"id"`
	AuthorID  int64      `json:"authorId" db:"author_id"`
	Caption   string     `json:"caption" db:"caption"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
	Likes     int64      `json:"likes" db:"likes"`
	DidLike   bool       `json:"didLike" db:"did_like"`
	Images    []ImageRef `json:"images" db:"-"`
}

type Reply struct {
	ID        int64      `json:"replyId" db:"id"`
	TweetID   int64      `json:"tweetId" db:"tweet_id"`
	AuthorID  int64      `json:"authorId" db:"author_id"`
	Caption   string     `json:"caption" db:"caption"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
	Likes     int64      `json:"likes" db:"likes"`
	DidLike   bool       `json:"didLike" db:"did_like"`
	Images    []ImageRef `json:"images" db:"-"`
}

// ImageRef points at a media file by bare filename. The file lives in the
// media directory, so the directory can move without invalidating records.
// Position is the display order within the owning tweet or reply.
type ImageRef struct {
	ID        int64      `json:"id" db:"id"`
	OwnerKind EntityKind `json:"ownerKind" db:"owner_kind"`
	OwnerID   int64      `json:"ownerId" db:"owner_id"`
	FileName  string     `json:"fileName" db:"file_name"`
	Position  int        `json:"position" db:"position"`
}

type EntityKind string

const (
	KindTweet EntityKind = "tweet"
	KindReply EntityKind = "reply"
)

// EntityRef identifies a tweet or a reply for operations that accept either,
// such as like toggling and timestamp bumps.
type EntityRef struct {
	Kind EntityKind
	ID   int64
}

func TweetRef(id int64) EntityRef { return EntityRef{Kind: KindTweet, ID: id} }
func ReplyRef(id int64) EntityRef { return EntityRef{Kind: KindReply, ID: id} }

// SessionUser is the denormalized in-memory snapshot of the signed-in user.
// It is a copy, never a pointer into the store; the store record stays
// authoritative.
type SessionUser struct {
	ID           int64
	FullName     string
	Username     string
	ProfileText  string
	ProfileImage []byte
	FollowIDs    []int64
}

func (u *SessionUser) Follows(id int64) bool {
	for _, f := range u.FollowIDs {
		if f == id {
			return true
		}
	}
	return false
}
