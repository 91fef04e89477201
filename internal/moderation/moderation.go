// Package moderation is the admin overlay: bans, takedowns, display roles
// and announcements. Admin status always comes from the injected allow-list
// policy, never from a stored flag.
package moderation

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

type Service struct {
	store      *store.Store
	privileged func(email string) bool
	log        *logrus.Logger
}

func New(st *store.Store, privileged func(string) bool, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: st, privileged: privileged, log: log}
}

// IsAdmin evaluates the allow-list policy for an observed user.
func (s *Service) IsAdmin(user *models.User) bool {
	return user != nil && s.privileged(user.Email)
}

// SetBanned flags a user. A ban strips posting, following, reacting and
// messaging privileges; it does not remove read visibility or content.
func (s *Service) SetBanned(ctx context.Context, actor *models.User, targetID string, banned bool) error {
	if !s.IsAdmin(actor) {
		return models.ErrPermissionDenied
	}
	if !s.store.Exists(ctx, "users/"+targetID) {
		return models.ErrNotFound
	}
	s.log.WithFields(logrus.Fields{
		"actor": actor.ID, "target": targetID, "banned": banned,
	}).Warn("Ban state changed")
	return s.store.Put(ctx, "users/"+targetID+"/isBanned", banned)
}

// ToggleTakedown flips the visibility-suppression flag on a post. Reversible
// and distinct from deletion; posts are never hard-deleted here.
func (s *Service) ToggleTakedown(ctx context.Context, actor *models.User, postID string) error {
	if !s.IsAdmin(actor) {
		return models.ErrPermissionDenied
	}
	var post models.Post
	ok, err := s.store.Get(ctx, "posts/"+postID, &post)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	s.log.WithFields(logrus.Fields{
		"actor": actor.ID, "post": postID, "takenDown": !post.IsTakenDown,
	}).Warn("Takedown toggled")
	return s.store.Put(ctx, "posts/"+postID+"/isTakenDown", !post.IsTakenDown)
}

// SetRole assigns a display label and color to a non-admin user. The role is
// a presentation overlay only and must never gate anything.
func (s *Service) SetRole(ctx context.Context, actor *models.User, targetID, role, color string) error {
	if !s.IsAdmin(actor) {
		return models.ErrPermissionDenied
	}
	var target models.User
	ok, err := s.store.Get(ctx, "users/"+targetID, &target)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	if s.privileged(target.Email) {
		return models.ErrInvalidInput
	}
	return s.store.Update(ctx, "users/"+targetID, map[string]any{
		"role":      role,
		"roleColor": color,
	})
}

// Announce publishes an admin broadcast.
func (s *Service) Announce(ctx context.Context, actor *models.User, text string) (string, error) {
	if !s.IsAdmin(actor) {
		return "", models.ErrPermissionDenied
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.ErrInvalidInput
	}
	return s.store.Push(ctx, "announcements", models.Announcement{
		Text:      text,
		Timestamp: s.store.Now(),
		AuthorID:  actor.ID,
	})
}

func (s *Service) UpdateAnnouncement(ctx context.Context, actor *models.User, id, text string) error {
	if !s.IsAdmin(actor) {
		return models.ErrPermissionDenied
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ErrInvalidInput
	}
	if !s.store.Exists(ctx, "announcements/"+id) {
		return models.ErrNotFound
	}
	return s.store.Put(ctx, "announcements/"+id+"/text", text)
}

func (s *Service) DeleteAnnouncement(ctx context.Context, actor *models.User, id string) error {
	if !s.IsAdmin(actor) {
		return models.ErrPermissionDenied
	}
	if !s.store.Exists(ctx, "announcements/"+id) {
		return models.ErrNotFound
	}
	return s.store.Delete(ctx, "announcements/"+id)
}

// Announcements lists broadcasts newest-first. Reading is not admin-gated.
func (s *Service) Announcements(ctx context.Context) ([]models.Announcement, error) {
	var all map[string]models.Announcement
	if _, err := s.store.Get(ctx, "announcements", &all); err != nil {
		return nil, err
	}
	out := make([]models.Announcement, 0, len(all))
	for id, ann := range all {
		ann.ID = id
		out = append(out, ann)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
