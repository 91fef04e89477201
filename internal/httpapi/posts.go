package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/feed"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
)

func (a *API) FeedHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	posts, err := a.feed.Posts(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, feed.Visible(posts, user, r.URL.Query().Get("q")))
}

func (a *API) ReelsHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	posts, err := a.feed.Posts(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, feed.Reels(posts, user))
}

func (a *API) CreatePostHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Text     string `json:"text"`
		PhotoURL string `json:"photoURL"`
		VideoURL string `json:"videoURL"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	id, err := a.feed.CreatePost(r.Context(), user, req.Text, req.PhotoURL, req.VideoURL)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.metrics.PostsCreated.WithLabelValues("post").Inc()
	a.writeJSON(w, r, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) LikeHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := a.feed.ToggleLike(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) DislikeHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := a.feed.ToggleDislike(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) CommentsHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	post, err := a.feed.Post(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if post.IsTakenDown && !user.IsAdmin {
		a.writeErr(w, r, models.ErrNotFound)
		return
	}
	a.writeJSON(w, r, http.StatusOK, models.SortedComments(post.Comments))
}

func (a *API) AddCommentHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	id, err := a.feed.AddComment(r.Context(), user, mux.Vars(r)["id"], req.Text)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) TakedownHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := a.moderation.ToggleTakedown(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.metrics.ModerationActions.WithLabelValues("takedown").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) LeaderboardHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	users, err := a.identity.List(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	board, err := a.feed.Leaderboard(r.Context(), users)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, board)
}

func (a *API) NotificationsHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	list, err := a.notifier.List(r.Context(), user.ID)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, list)
}

func (a *API) MarkAllReadHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := a.notifier.MarkAllRead(r.Context(), user.ID); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) AnnouncementsHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	list, err := a.moderation.Announcements(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, list)
}

func (a *API) AnnounceHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	id, err := a.moderation.Announce(r.Context(), user, req.Text)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.metrics.ModerationActions.WithLabelValues("announce").Inc()
	a.writeJSON(w, r, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) UpdateAnnouncementHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if err := a.moderation.UpdateAnnouncement(r.Context(), user, mux.Vars(r)["id"], req.Text); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) DeleteAnnouncementHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := a.moderation.DeleteAnnouncement(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
