package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
)

func (a *API) ListUsersHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	users, err := a.identity.List(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, users)
}

func (a *API) GetUserHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	target, err := a.identity.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, target)
}

func (a *API) ToggleFollowHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	targetID := mux.Vars(r)["id"]
	err := a.graph.ToggleFollow(r.Context(), user.ID, targetID)
	if errors.Is(err, models.ErrInconsistent) {
		// Only one side of the edge landed; reconcile right away instead
		// of waiting for the next read.
		if rerr := a.graph.Repair(r.Context(), user.ID, targetID); rerr != nil {
			a.log.WithError(rerr).WithFields(logrus.Fields{
				"actor": user.ID, "target": targetID,
			}).Warn("Follow edge reconciliation failed")
		}
	}
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	direction := "follow"
	if user.Following[targetID] {
		direction = "unfollow"
	}
	a.metrics.FollowToggles.WithLabelValues(direction).Inc()
	a.log.WithFields(logrus.Fields{
		"actor":  user.ID,
		"target": targetID,
	}).Info("Follow toggled")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) FollowersHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	followers, err := a.graph.Followers(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, map[string][]string{"follows": followers})
}

func (a *API) FollowingHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	following, err := a.graph.Following(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, map[string][]string{"follows": following})
}

func (a *API) BanHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Banned bool `json:"banned"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if err := a.moderation.SetBanned(r.Context(), user, mux.Vars(r)["id"], req.Banned); err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.metrics.ModerationActions.WithLabelValues("ban").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) SetRoleHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Role  string `json:"role"`
		Color string `json:"color"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if err := a.moderation.SetRole(r.Context(), user, mux.Vars(r)["id"], req.Role, req.Color); err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.metrics.ModerationActions.WithLabelValues("role").Inc()
	w.WriteHeader(http.StatusNoContent)
}
