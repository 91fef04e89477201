package httpapi

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"pwd"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"pwd"`
}

func (a *API) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer a.afterRequest(start, r)

	var req registerRequest
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	uid, err := a.identity.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.log.WithFields(logrus.Fields{"user": uid, "email": req.Email}).Info("User registered successfully")
	a.writeJSON(w, r, http.StatusCreated, map[string]string{"id": uid})
}

func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer a.afterRequest(start, r)

	var req loginRequest
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	uid, token, err := a.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.metrics.BadRequests.WithLabelValues("login").Inc()
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	session, _ := a.sessions.Get(r, sessionName)
	session.Values["uid"] = uid
	if err := session.Save(r, w); err != nil {
		a.log.WithError(err).Error("Failed to save session")
	}
	a.writeJSON(w, r, http.StatusOK, map[string]string{"id": uid, "token": token})
}

// LogoutHandler terminates the session; the client is expected to reset all
// locally derived state on the sign-out transition.
func (a *API) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	a.clearSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ViewsHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, r, http.StatusOK, models.Views())
}

func (a *API) MeHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	a.writeJSON(w, r, http.StatusOK, user)
}

func (a *API) UpdateProfileHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Name     string `json:"name"`
		Bio      string `json:"bio"`
		PhotoURL string `json:"photoURL"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if err := a.identity.UpdateProfile(r.Context(), user.ID, req.Name, req.Bio, req.PhotoURL); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) AddCaptureHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if err := a.identity.AddCapture(r.Context(), user.ID, req.URL); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
