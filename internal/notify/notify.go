// Package notify writes notification records into per-recipient streams in
// response to follow/like/comment actions and manages their read state.
package notify

import (
	"context"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

type Service struct {
	store   *store.Store
	counter *prometheus.CounterVec
	log     *logrus.Logger
}

func New(st *store.Store, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: st, log: log}
}

// InstrumentWith counts fanned-out records per notification type.
func (s *Service) InstrumentWith(counter *prometheus.CounterVec) {
	s.counter = counter
}

// Fanout appends one record to the recipient's stream. Self-triggered events
// never fan out. Records are immutable after creation except the read flag.
func (s *Service) Fanout(ctx context.Context, sender *models.User, recipientID, typ string) error {
	if sender == nil || sender.ID == recipientID {
		return nil
	}
	name := sender.Name
	if name == "" {
		name = "Shadow"
	}
	record := models.Notification{
		SenderID:    sender.ID,
		SenderName:  name,
		SenderPhoto: sender.PhotoURL,
		Type:        typ,
		Timestamp:   s.store.Now(),
		Read:        false,
	}
	id, err := s.store.Push(ctx, "notifications/"+recipientID, record)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"recipient": recipientID,
			"type":      typ,
		}).Error("Failed to fan out notification")
		return err
	}
	if s.counter != nil {
		s.counter.WithLabelValues(typ).Inc()
	}
	s.log.WithFields(logrus.Fields{
		"notification": id,
		"recipient":    recipientID,
		"type":         typ,
	}).Info("Notification fanned out")
	return nil
}

// List returns the recipient's stream newest-first. Repeated events stay
// separate entries, there is no coalescing.
func (s *Service) List(ctx context.Context, userID string) ([]models.Notification, error) {
	var stream map[string]models.Notification
	if _, err := s.store.Get(ctx, "notifications/"+userID, &stream); err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(stream))
	for id, n := range stream {
		n.ID = id
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkAllRead flips the read flag on every notification visible at call
// time. The batch is computed first, so records that arrive while the writes
// run keep their unread state.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	batch, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	return s.markRead(ctx, userID, batch)
}

func (s *Service) markRead(ctx context.Context, userID string, batch []models.Notification) error {
	for _, n := range batch {
		if n.Read {
			continue
		}
		path := "notifications/" + userID + "/" + n.ID + "/read"
		if err := s.store.Put(ctx, path, true); err != nil {
			return err
		}
	}
	return nil
}
