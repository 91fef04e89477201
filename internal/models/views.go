package models

// View names the navigable surfaces of a client. Transitions between them
// are plain UI routing and carry no business meaning.
type View string

const (
	ViewFeed          View = "feed"
	ViewReels         View = "reels"
	ViewPost          View = "post"
	ViewLeaderboard   View = "leaderboard"
	ViewNotifications View = "notifications"
	ViewChat          View = "chat"
	ViewProfile       View = "profile"
	ViewAdmin         View = "admin"
)

func Views() []View {
	return []View{
		ViewFeed, ViewReels, ViewPost, ViewLeaderboard,
		ViewNotifications, ViewChat, ViewProfile, ViewAdmin,
	}
}

func (v View) Valid() bool {
	for _, known := range Views() {
		if v == known {
			return true
		}
	}
	return false
}
