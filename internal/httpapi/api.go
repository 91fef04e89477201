// Package httpapi exposes the client actions over HTTP. Handlers are thin
// guards around the engines; every state change goes through the shared
// store so other connected clients observe it through their subscriptions.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/chat"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/config"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/feed"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/graph"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/identity"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/metrics"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/moderation"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/notify"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

const sessionName = "vimos_session"

type API struct {
	cfg        *config.Config
	log        *logrus.Logger
	metrics    *metrics.Metrics
	sessions   *sessions.CookieStore
	store      *store.Store
	identity   *identity.Service
	graph      *graph.Service
	feed       *feed.Service
	chat       *chat.Service
	notifier   *notify.Service
	moderation *moderation.Service
}

func New(
	cfg *config.Config,
	log *logrus.Logger,
	m *metrics.Metrics,
	st *store.Store,
	id *identity.Service,
	g *graph.Service,
	f *feed.Service,
	c *chat.Service,
	n *notify.Service,
	mod *moderation.Service,
) *API {
	if log == nil {
		log = logrus.New()
	}
	cookieStore := sessions.NewCookieStore([]byte(cfg.SessionKey))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 16, // 16 hours
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	return &API{
		cfg: cfg, log: log, metrics: m, sessions: cookieStore,
		store: st, identity: id, graph: g, feed: f, chat: c,
		notifier: n, moderation: mod,
	}
}

func (a *API) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/register", a.RegisterHandler).Methods("POST")
	r.HandleFunc("/login", a.LoginHandler).Methods("POST")
	r.HandleFunc("/logout", a.LogoutHandler).Methods("POST")
	r.HandleFunc("/views", a.ViewsHandler).Methods("GET")

	r.HandleFunc("/me", a.withUser(a.MeHandler)).Methods("GET")
	r.HandleFunc("/me/profile", a.withUser(a.UpdateProfileHandler)).Methods("PUT")
	r.HandleFunc("/me/captures", a.withUser(a.AddCaptureHandler)).Methods("POST")

	r.HandleFunc("/users", a.withUser(a.ListUsersHandler)).Methods("GET")
	r.HandleFunc("/users/{id}", a.withUser(a.GetUserHandler)).Methods("GET")
	r.HandleFunc("/users/{id}/follow", a.withUser(a.ToggleFollowHandler)).Methods("POST")
	r.HandleFunc("/users/{id}/followers", a.withUser(a.FollowersHandler)).Methods("GET")
	r.HandleFunc("/users/{id}/following", a.withUser(a.FollowingHandler)).Methods("GET")
	r.HandleFunc("/users/{id}/ban", a.withUser(a.BanHandler)).Methods("POST")
	r.HandleFunc("/users/{id}/role", a.withUser(a.SetRoleHandler)).Methods("POST")

	r.HandleFunc("/posts", a.withUser(a.FeedHandler)).Methods("GET")
	r.HandleFunc("/posts", a.withUser(a.CreatePostHandler)).Methods("POST")
	r.HandleFunc("/posts/{id}/like", a.withUser(a.LikeHandler)).Methods("POST")
	r.HandleFunc("/posts/{id}/dislike", a.withUser(a.DislikeHandler)).Methods("POST")
	r.HandleFunc("/posts/{id}/comments", a.withUser(a.CommentsHandler)).Methods("GET")
	r.HandleFunc("/posts/{id}/comments", a.withUser(a.AddCommentHandler)).Methods("POST")
	r.HandleFunc("/posts/{id}/takedown", a.withUser(a.TakedownHandler)).Methods("POST")
	r.HandleFunc("/reels", a.withUser(a.ReelsHandler)).Methods("GET")
	r.HandleFunc("/leaderboard", a.withUser(a.LeaderboardHandler)).Methods("GET")

	r.HandleFunc("/notifications", a.withUser(a.NotificationsHandler)).Methods("GET")
	r.HandleFunc("/notifications/read", a.withUser(a.MarkAllReadHandler)).Methods("POST")

	r.HandleFunc("/announcements", a.withUser(a.AnnouncementsHandler)).Methods("GET")
	r.HandleFunc("/announcements", a.withUser(a.AnnounceHandler)).Methods("POST")
	r.HandleFunc("/announcements/{id}", a.withUser(a.UpdateAnnouncementHandler)).Methods("PUT")
	r.HandleFunc("/announcements/{id}", a.withUser(a.DeleteAnnouncementHandler)).Methods("DELETE")

	r.HandleFunc("/chats/{userId}/messages", a.withUser(a.DirectMessagesHandler)).Methods("GET")
	r.HandleFunc("/chats/{userId}/messages", a.withUser(a.SendDirectHandler)).Methods("POST")

	r.HandleFunc("/groups", a.withUser(a.GroupsHandler)).Methods("GET")
	r.HandleFunc("/groups", a.withUser(a.CreateGroupHandler)).Methods("POST")
	r.HandleFunc("/groups/{id}", a.withUser(a.UpdateGroupHandler)).Methods("PUT")
	r.HandleFunc("/groups/{id}/messages", a.withUser(a.GroupMessagesHandler)).Methods("GET")
	r.HandleFunc("/groups/{id}/messages", a.withUser(a.SendGroupHandler)).Methods("POST")
	r.HandleFunc("/groups/{id}/members", a.withUser(a.AddMemberHandler)).Methods("POST")
	r.HandleFunc("/groups/{id}/members/{userId}", a.withUser(a.RemoveMemberHandler)).Methods("DELETE")
	r.HandleFunc("/groups/{id}/admins", a.withUser(a.PromoteAdminHandler)).Methods("POST")
	r.HandleFunc("/groups/{id}/leave", a.withUser(a.LeaveGroupHandler)).Methods("POST")

	r.HandleFunc("/events/{collection}", a.withUser(a.EventsHandler)).Methods("GET")

	return r
}

type userHandler func(w http.ResponseWriter, r *http.Request, user *models.User)

// withUser resolves the acting identity (bearer token first, session cookie
// as fallback), observes the user record and rejects banned actors. The
// observation also corrects a drifted stored admin flag.
func (a *API) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer a.afterRequest(start, r)

		uid := a.actorID(r)
		if uid == "" {
			a.metrics.BadRequests.WithLabelValues(r.URL.Path).Inc()
			http.Error(w, "Not signed in", http.StatusUnauthorized)
			return
		}
		user, err := a.identity.Observe(r.Context(), uid)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		if user.IsBanned && r.URL.Path != "/logout" {
			// Read access survives a ban through the public listings; the
			// banned session itself is terminated.
			a.clearSession(w, r)
			a.metrics.BadRequests.WithLabelValues(r.URL.Path).Inc()
			http.Error(w, "Your account has been banned", http.StatusForbidden)
			return
		}
		next(w, r, user)
	}
}

func (a *API) actorID(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		claims, err := a.identity.Tokens().Validate(strings.TrimPrefix(header, "Bearer "))
		if err == nil {
			return claims.UserID
		}
		a.log.WithError(err).Warn("Rejected bearer token")
	}
	session, _ := a.sessions.Get(r, sessionName)
	if uid, ok := session.Values["uid"].(string); ok {
		return uid
	}
	return ""
}

func (a *API) clearSession(w http.ResponseWriter, r *http.Request) {
	session, _ := a.sessions.Get(r, sessionName)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)
}

func (a *API) afterRequest(start time.Time, r *http.Request) {
	duration := time.Since(start)
	fields := logrus.Fields{
		"method":    r.Method,
		"path":      r.URL.Path,
		"duration":  duration,
		"remote_ip": r.RemoteAddr,
	}
	if duration > 2*time.Second {
		a.log.WithFields(fields).Warn("Slow request detected")
	} else {
		a.log.WithFields(fields).Info("Request completed")
	}
}

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status < 400 {
		a.metrics.SuccessfulRequests.WithLabelValues(r.URL.Path).Inc()
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.WithError(err).Error("Failed to encode response")
	}
}

func (a *API) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrInconsistent) {
		// A half-applied compound write self-heals on convergent re-read;
		// it is never an end-user error.
		a.log.WithError(err).WithField("path", r.URL.Path).Warn("Compound write partially applied")
		a.metrics.SuccessfulRequests.WithLabelValues(r.URL.Path).Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	}
	if status < 500 {
		a.metrics.BadRequests.WithLabelValues(r.URL.Path).Inc()
	} else {
		a.log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}
	http.Error(w, err.Error(), status)
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.ErrInvalidInput
	}
	return nil
}
