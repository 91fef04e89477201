// Package graph maintains the follow graph: toggled edges, mutuality checks
// and follower/following projections. A follow touches both users' sets with
// two independent point writes, so a half-applied edge is a recoverable
// condition repaired on re-read, never a fatal error.
package graph

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/notify"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

type Service struct {
	store    *store.Store
	notifier *notify.Service
	log      *logrus.Logger
}

func New(st *store.Store, notifier *notify.Service, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: st, notifier: notifier, log: log}
}

func (s *Service) user(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	ok, err := s.store.Get(ctx, "users/"+id, &u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	u.ID = id
	return &u, nil
}

// ToggleFollow flips the edge actor -> target. Following yourself is a
// silent no-op. Exactly one follow notification goes out on the
// not-following -> following transition and none on unfollow.
func (s *Service) ToggleFollow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return nil
	}
	actor, err := s.user(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.IsBanned {
		return models.ErrPermissionDenied
	}
	if !s.store.Exists(ctx, "users/"+targetID) {
		return models.ErrNotFound
	}

	followingPath := "users/" + actorID + "/following/" + targetID
	followersPath := "users/" + targetID + "/followers/" + actorID

	if actor.Following[targetID] {
		if err := s.store.Delete(ctx, followingPath); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, followersPath); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{"actor": actorID, "target": targetID}).Info("Unfollowed")
		return nil
	}

	if err := s.store.Put(ctx, followingPath, true); err != nil {
		return err
	}
	if err := s.store.Put(ctx, followersPath, true); err != nil {
		// First write landed, second did not: a transient inconsistency that
		// Repair or the next toggle converges.
		s.log.WithError(err).WithFields(logrus.Fields{
			"actor": actorID, "target": targetID,
		}).Warn("Follow edge partially applied")
		return models.ErrInconsistent
	}
	s.log.WithFields(logrus.Fields{"actor": actorID, "target": targetID}).Info("Followed")
	return s.notifier.Fanout(ctx, actor, targetID, models.NotificationFollow)
}

// IsMutual recomputes mutuality from the current graph on every call. It is
// the sole gate for direct messaging and group invitations and is never
// cached.
func (s *Service) IsMutual(ctx context.Context, a, b string) bool {
	if a == b {
		return false
	}
	u, err := s.user(ctx, a)
	if err != nil {
		return false
	}
	return u.Following[b] && u.Followers[b]
}

// Followers and Following are pure projections of the stored sets; no
// separate counters exist to drift.

func (s *Service) Followers(ctx context.Context, id string) ([]string, error) {
	u, err := s.user(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.Keys(u.Followers), nil
}

func (s *Service) Following(ctx context.Context, id string) ([]string, error) {
	u, err := s.user(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.Keys(u.Following), nil
}

// Repair converges a half-applied edge between a and b. The follower entry
// on the target side is re-derived from the actor-side following entry,
// which records the intended end state of the toggle.
func (s *Service) Repair(ctx context.Context, a, b string) error {
	ua, err := s.user(ctx, a)
	if err != nil {
		return err
	}
	ub, err := s.user(ctx, b)
	if err != nil {
		return err
	}
	if err := s.repairSide(ctx, ua, ub); err != nil {
		return err
	}
	return s.repairSide(ctx, ub, ua)
}

func (s *Service) repairSide(ctx context.Context, from, to *models.User) error {
	intended := from.Following[to.ID]
	recorded := to.Followers[from.ID]
	if intended == recorded {
		return nil
	}
	path := "users/" + to.ID + "/followers/" + from.ID
	s.log.WithFields(logrus.Fields{
		"from": from.ID, "to": to.ID, "following": intended,
	}).Warn("Repairing half-applied follow edge")
	if intended {
		return s.store.Put(ctx, path, true)
	}
	return s.store.Delete(ctx, path)
}
