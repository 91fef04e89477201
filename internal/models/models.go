package models

import "sort"

// Entities are stored as JSON documents under hierarchical key paths, so
// set-valued fields are presence maps (id -> true) exactly as they live in
// the store. Projections below turn them back into sorted slices.

type User struct {
	ID             string            `json:"id,omitempty"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Bio            string            `json:"bio"`
	PhotoURL       string            `json:"photoURL"`
	Followers      map[string]bool   `json:"followers,omitempty"`
	Following      map[string]bool   `json:"following,omitempty"`
	RecentCaptures map[string]string `json:"recentCaptures,omitempty"`
	TotalLikes     int               `json:"totalLikes"`
	IsAdmin        bool              `json:"isAdmin,omitempty"`
	IsBanned       bool              `json:"isBanned,omitempty"`
	Role           string            `json:"role,omitempty"`
	RoleColor      string            `json:"roleColor,omitempty"`
}

type Post struct {
	ID          string             `json:"id,omitempty"`
	UserID      string             `json:"userId"`
	UserName    string             `json:"userName"`
	UserPhoto   string             `json:"userPhoto"`
	Text        string             `json:"text"`
	PhotoURL    string             `json:"photoURL,omitempty"`
	VideoURL    string             `json:"videoURL,omitempty"`
	Timestamp   int64              `json:"timestamp"`
	Likes       map[string]bool    `json:"likes,omitempty"`
	Dislikes    map[string]bool    `json:"dislikes,omitempty"`
	Comments    map[string]Comment `json:"comments,omitempty"`
	IsTakenDown bool               `json:"isTakenDown,omitempty"`
}

type Comment struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type Announcement struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	AuthorID  string `json:"authorId"`
}

const (
	NotificationFollow  = "follow"
	NotificationLike    = "like"
	NotificationComment = "comment"
)

type Notification struct {
	ID          string `json:"id,omitempty"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName"`
	SenderPhoto string `json:"senderPhoto"`
	Type        string `json:"type"`
	Timestamp   int64  `json:"timestamp"`
	Read        bool   `json:"read"`
}

type ChatMessage struct {
	ID        string `json:"id,omitempty"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type Group struct {
	ID            string                 `json:"id,omitempty"`
	Name          string                 `json:"name"`
	Bio           string                 `json:"bio,omitempty"`
	PhotoURL      string                 `json:"photoURL,omitempty"`
	CreatorID     string                 `json:"creatorId"`
	Participants  map[string]bool        `json:"participants,omitempty"`
	Admins        map[string]bool        `json:"admins,omitempty"`
	Messages      map[string]ChatMessage `json:"messages,omitempty"`
	LastMessage   string                 `json:"lastMessage,omitempty"`
	LastTimestamp int64                  `json:"lastTimestamp,omitempty"`
	Timestamp     int64                  `json:"timestamp"`
}

// Credential is the sign-in registry entry kept alongside the user record.
type Credential struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// Keys returns the members of a presence map as a sorted slice.
func Keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id, ok := range set {
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SortedComments orders a comment map by arrival time.
func SortedComments(comments map[string]Comment) []Comment {
	out := make([]Comment, 0, len(comments))
	for id, c := range comments {
		c.ID = id
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortedMessages orders a conversation log by store arrival time.
func SortedMessages(messages map[string]ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for id, m := range messages {
		m.ID = id
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out
}
