package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
)

// EventsHandler bridges store subscriptions onto a server-sent event stream:
// the client gets the full current snapshot immediately and again on every
// change, which is the same contract the in-process Watch gives. Personal
// streams are scoped to the caller.
func (a *API) EventsHandler(w http.ResponseWriter, r *http.Request, user *models.User) {
	var prefix string
	switch collection := mux.Vars(r)["collection"]; collection {
	case "users", "posts", "announcements", "groups":
		prefix = collection
	case "notifications":
		prefix = "notifications/" + user.ID
	case "me":
		prefix = "users/" + user.ID
	default:
		a.writeErr(w, r, models.ErrInvalidInput)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots, cancel := a.store.Watch(prefix)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-snapshots:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", snap.Value); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
