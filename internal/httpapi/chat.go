package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
)

func (a *API) DirectMessagesHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	messages, err := a.chat.DirectMessages(r.Context(), user.ID, mux.Vars(r)["userId"])
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, messages)
}

func (a *API) SendDirectHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	id, err := a.chat.SendDirect(r.Context(), user, mux.Vars(r)["userId"], req.Text)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.metrics.MessagesSent.WithLabelValues("direct").Inc()
	a.writeJSON(w, r, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) GroupsHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	groups, err := a.chat.GroupsFor(r.Context(), user.ID)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, groups)
}

func (a *API) CreateGroupHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Name      string   `json:"name"`
		MemberIDs []string `json:"memberIds"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	id, err := a.chat.CreateGroup(r.Context(), user, req.Name, req.MemberIDs)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) UpdateGroupHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Name     string `json:"name"`
		Bio      string `json:"bio"`
		PhotoURL string `json:"photoURL"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	err := a.chat.UpdateGroupInfo(r.Context(), user.ID, mux.Vars(r)["id"], req.Name, req.Bio, req.PhotoURL)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) GroupMessagesHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	group, err := a.chat.Group(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if !group.Participants[user.ID] {
		a.writeErr(w, r, models.ErrPermissionDenied)
		return
	}
	messages, err := a.chat.GroupMessages(r.Context(), group.ID)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, messages)
}

func (a *API) SendGroupHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	id, err := a.chat.SendGroup(r.Context(), user, mux.Vars(r)["id"], req.Text)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	a.metrics.MessagesSent.WithLabelValues("group").Inc()
	a.writeJSON(w, r, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) AddMemberHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if err := a.chat.AddMember(r.Context(), user.ID, mux.Vars(r)["id"], req.UserID); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) RemoveMemberHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	vars := mux.Vars(r)
	if err := a.chat.RemoveMember(r.Context(), user.ID, vars["id"], vars["userId"]); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) PromoteAdminHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decode(r, &req); err != nil {
		a.writeErr(w, r, err)
		return
	}
	if err := a.chat.PromoteAdmin(r.Context(), user.ID, mux.Vars(r)["id"], req.UserID); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) LeaveGroupHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	if err := a.chat.LeaveGroup(r.Context(), user.ID, mux.Vars(r)["id"]); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
