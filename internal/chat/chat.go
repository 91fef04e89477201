// Package chat is the messaging engine: direct threads addressed by the
// sorted participant pair, and groups with role-based administration. Both
// logs are append-only and ordered by store-assigned timestamps, never
// client clocks.
package chat

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/graph"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

// ThreadID addresses a direct thread by the lexicographically sorted pair of
// participant IDs, so both sides resolve the same thread no matter who
// initiates and creation is idempotent.
func ThreadID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

type Service struct {
	store *store.Store
	graph *graph.Service
	log   *logrus.Logger
}

func New(st *store.Store, g *graph.Service, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: st, graph: g, log: log}
}

// SendDirect appends into the pair's thread. Mutuality is checked at send
// time, every time: prior thread history grants nothing.
func (s *Service) SendDirect(ctx context.Context, sender *models.User, recipientID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.ErrInvalidInput
	}
	if sender.IsBanned {
		return "", models.ErrPermissionDenied
	}
	if !s.graph.IsMutual(ctx, sender.ID, recipientID) {
		return "", models.ErrPermissionDenied
	}
	msg := models.ChatMessage{
		SenderID:  sender.ID,
		Text:      text,
		Timestamp: s.store.Now(),
	}
	return s.store.Push(ctx, "chats/"+ThreadID(sender.ID, recipientID)+"/messages", msg)
}

func (s *Service) DirectMessages(ctx context.Context, a, b string) ([]models.ChatMessage, error) {
	var log map[string]models.ChatMessage
	if _, err := s.store.Get(ctx, "chats/"+ThreadID(a, b)+"/messages", &log); err != nil {
		return nil, err
	}
	return models.SortedMessages(log), nil
}

// CreateGroup makes the creator the sole initial admin and always a
// participant. Invitees who are not mutual with the creator are silently
// excluded rather than failing the call.
func (s *Service) CreateGroup(ctx context.Context, creator *models.User, name string, memberIDs []string) (string, error) {
	if creator.IsBanned {
		return "", models.ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" || len(memberIDs) == 0 {
		return "", models.ErrInvalidInput
	}

	participants := map[string]bool{creator.ID: true}
	for _, id := range memberIDs {
		if s.graph.IsMutual(ctx, creator.ID, id) {
			participants[id] = true
		}
	}
	group := models.Group{
		Name:         name,
		Bio:          "New collective space.",
		CreatorID:    creator.ID,
		Participants: participants,
		Admins:       map[string]bool{creator.ID: true},
		Timestamp:    s.store.Now(),
	}
	id, err := s.store.Push(ctx, "groups", group)
	if err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{
		"group": id, "creator": creator.ID, "members": len(participants),
	}).Info("Group created")
	return id, nil
}

func (s *Service) Group(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	ok, err := s.store.Get(ctx, "groups/"+id, &group)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	group.ID = id
	return &group, nil
}

// GroupsFor lists the groups a user participates in. Groups whose
// participant set has emptied are dissolved and skipped.
func (s *Service) GroupsFor(ctx context.Context, userID string) ([]models.Group, error) {
	var all map[string]models.Group
	if _, err := s.store.Get(ctx, "groups", &all); err != nil {
		return nil, err
	}
	out := make([]models.Group, 0)
	for id, group := range all {
		if len(group.Participants) == 0 || !group.Participants[userID] {
			continue
		}
		group.ID = id
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastTimestamp != out[j].LastTimestamp {
			return out[i].LastTimestamp > out[j].LastTimestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AddMember adds userID when the actor is a group admin and mutual with the
// invitee; anything else is a silent no-op.
func (s *Service) AddMember(ctx context.Context, actorID, groupID, userID string) error {
	group, err := s.Group(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.Admins[actorID] || !s.graph.IsMutual(ctx, actorID, userID) {
		return nil
	}
	return s.store.Put(ctx, "groups/"+groupID+"/participants/"+userID, true)
}

// RemoveMember removes userID from participants and admins. Admins may
// remove anyone; a member may always remove themself.
func (s *Service) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {
	group, err := s.Group(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.Admins[actorID] && actorID != userID {
		return nil
	}
	// The admin bit goes first so admins remain a subset of participants
	// even if only one of the two writes lands.
	if err := s.store.Delete(ctx, "groups/"+groupID+"/admins/"+userID); err != nil {
		return err
	}
	return s.store.Delete(ctx, "groups/"+groupID+"/participants/"+userID)
}

// LeaveGroup is the unconditional self-removal.
func (s *Service) LeaveGroup(ctx context.Context, actorID, groupID string) error {
	return s.RemoveMember(ctx, actorID, groupID, actorID)
}

// PromoteAdmin grants the admin bit. Only current admins may promote, and
// only participants can be promoted, keeping admins inside the participant
// set. There is no demotion.
func (s *Service) PromoteAdmin(ctx context.Context, actorID, groupID, userID string) error {
	group, err := s.Group(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.Admins[actorID] || !group.Participants[userID] {
		return nil
	}
	return s.store.Put(ctx, "groups/"+groupID+"/admins/"+userID, true)
}

// UpdateGroupInfo lets an admin change the display fields.
func (s *Service) UpdateGroupInfo(ctx context.Context, actorID, groupID, name, bio, photoURL string) error {
	group, err := s.Group(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.Admins[actorID] {
		return models.ErrPermissionDenied
	}
	fields := map[string]any{}
	if name = strings.TrimSpace(name); name != "" {
		fields["name"] = name
	}
	if bio != "" {
		fields["bio"] = bio
	}
	if photoURL != "" {
		fields["photoURL"] = photoURL
	}
	if len(fields) == 0 {
		return models.ErrInvalidInput
	}
	return s.store.Update(ctx, "groups/"+groupID, fields)
}

// SendGroup appends into the group log and refreshes the preview fields.
func (s *Service) SendGroup(ctx context.Context, sender *models.User, groupID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.ErrInvalidInput
	}
	if sender.IsBanned {
		return "", models.ErrPermissionDenied
	}
	group, err := s.Group(ctx, groupID)
	if err != nil {
		return "", err
	}
	if !group.Participants[sender.ID] {
		return "", models.ErrPermissionDenied
	}
	msg := models.ChatMessage{
		SenderID:  sender.ID,
		Text:      text,
		Timestamp: s.store.Now(),
	}
	id, err := s.store.Push(ctx, "groups/"+groupID+"/messages", msg)
	if err != nil {
		return "", err
	}
	err = s.store.Update(ctx, "groups/"+groupID, map[string]any{
		"lastMessage":   text,
		"lastTimestamp": msg.Timestamp,
	})
	return id, err
}

func (s *Service) GroupMessages(ctx context.Context, groupID string) ([]models.ChatMessage, error) {
	var log map[string]models.ChatMessage
	if _, err := s.store.Get(ctx, "groups/"+groupID+"/messages", &log); err != nil {
		return nil, err
	}
	return models.SortedMessages(log), nil
}
