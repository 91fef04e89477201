// Package store implements the shared mutable state every client converges
// on: a key-addressable tree supporting point writes, point deletes,
// append-with-generated-key and full-snapshot change subscriptions. There
// are no transactions across paths; compound operations above this layer
// must tolerate partial application and repair on re-read.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Snapshot is one full-subtree delivery to a watcher. Value is the JSON of
// the current subtree, or JSON null when the path is absent.
type Snapshot struct {
	Path  string
	Value json.RawMessage
}

type watcher struct {
	prefix string
	ch     chan Snapshot
}

type Store struct {
	mu       sync.Mutex // held across commit and watcher notification
	tree     map[string]any
	db       *gorm.DB
	relay    *Relay
	origin   string
	clock    int64
	watchers map[int]*watcher
	nextID   int
	log      *logrus.Logger
}

// New returns a purely in-memory store, used by tests and as the fallback
// when no database is configured.
func New(log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	s := &Store{
		tree:     map[string]any{},
		origin:   uuid.NewString(),
		watchers: map[int]*watcher{},
		log:      log,
	}
	return s
}

// Open returns a store backed by the given database. The tree is rebuilt
// from the persisted leaf rows.
func Open(db *gorm.DB, log *logrus.Logger) (*Store, error) {
	s := New(log)
	s.db = db
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	var records []Record
	if err := db.Find(&records).Error; err != nil {
		return nil, err
	}
	for _, rec := range records {
		var v any
		if err := json.Unmarshal(rec.Value, &v); err != nil {
			log.WithError(err).WithField("path", rec.Path).Warn("Skipping unreadable record")
			continue
		}
		setAt(s.tree, splitPath(rec.Path), v)
	}
	log.WithField("records", len(records)).Info("Store loaded")
	return s, nil
}

// AttachRelay wires cross-process change propagation: local commits are
// published, and relayed paths from other processes are re-read from the
// database and re-delivered to local watchers.
func (s *Store) AttachRelay(relay *Relay) error {
	s.relay = relay
	return relay.subscribe(func(ev changeEvent) {
		if ev.Origin == s.origin {
			return
		}
		s.applyRemote(ev.Path)
	})
}

// Now returns the store-assigned timestamp in milliseconds. It is monotonic
// even if the wall clock steps backwards, so per-conversation ordering never
// reorders under clock skew.
func (s *Store) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= s.clock {
		now = s.clock + 1
	}
	s.clock = now
	return now
}

// Put replaces the subtree at path with value. Writing an empty map or nil
// is equivalent to Delete: absence means unset.
func (s *Store) Put(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	norm, err := normalize(value)
	if err != nil {
		return err
	}
	path = cleanPath(path)
	if norm == nil {
		return s.Delete(ctx, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	deleteAt(s.tree, splitPath(path))
	setAt(s.tree, splitPath(path), norm)
	leaves := map[string]any{}
	flatten(path, norm, leaves)
	if err := s.persist(ctx, path, leaves); err != nil {
		return err
	}
	s.notifyLocked(path)
	s.publish(path)
	return nil
}

// Update merges child fields at path: each named child is replaced, nil
// values unset. This is still a sequence of independent child writes, not a
// transaction.
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	for key, value := range fields {
		var err error
		if value == nil {
			err = s.Delete(ctx, path+"/"+key)
		} else {
			err = s.Put(ctx, path+"/"+key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the subtree at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path = cleanPath(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	deleteAt(s.tree, splitPath(path))
	if err := s.persist(ctx, path, nil); err != nil {
		return err
	}
	s.notifyLocked(path)
	s.publish(path)
	return nil
}

// Push appends value under a generated key at path and returns the key.
func (s *Store) Push(ctx context.Context, path string, value any) (string, error) {
	key := uuid.NewString()
	if err := s.Put(ctx, path+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

// Get materializes the current subtree at path into dst via JSON. The second
// return is false when the path is absent.
func (s *Store) Get(ctx context.Context, path string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	value, ok := getAt(s.tree, splitPath(path))
	var raw []byte
	var err error
	if ok {
		raw, err = json.Marshal(value)
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dst)
}

// Exists reports presence without materializing the subtree.
func (s *Store) Exists(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := getAt(s.tree, splitPath(path))
	return ok
}

// Watch subscribes to every change under prefix. The channel carries the
// full current snapshot, starting with one delivery of the present state.
// Slow consumers are coalesced to the latest snapshot instead of blocking
// writers. The cancel func detaches the watcher and closes the channel.
func (s *Store) Watch(prefix string) (<-chan Snapshot, func()) {
	prefix = cleanPath(prefix)
	w := &watcher{prefix: prefix, ch: make(chan Snapshot, 1)}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	w.send(s.snapshotLocked(prefix))
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w.ch)
		}
	}
	return w.ch, cancel
}

func (s *Store) snapshotLocked(prefix string) Snapshot {
	value, ok := getAt(s.tree, splitPath(prefix))
	if !ok {
		return Snapshot{Path: prefix, Value: json.RawMessage("null")}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.WithError(err).WithField("path", prefix).Error("Failed to encode snapshot")
		raw = json.RawMessage("null")
	}
	return Snapshot{Path: prefix, Value: raw}
}

func (s *Store) notifyLocked(changed string) {
	for _, w := range s.watchers {
		if related(w.prefix, changed) {
			w.send(s.snapshotLocked(w.prefix))
		}
	}
}

// send delivers without blocking: a pending undelivered snapshot is dropped
// in favour of the newer one.
func (w *watcher) send(snap Snapshot) {
	for {
		select {
		case w.ch <- snap:
			return
		default:
			select {
			case <-w.ch:
			default:
			}
		}
	}
}

func (s *Store) publish(path string) {
	if s.relay == nil {
		return
	}
	if err := s.relay.publish(changeEvent{Origin: s.origin, Path: path}); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("Change relay publish failed")
	}
}

// applyRemote reloads a subtree that another process changed and re-delivers
// snapshots locally.
func (s *Store) applyRemote(path string) {
	path = cleanPath(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		var records []Record
		err := s.db.Where("path = ? OR path LIKE ?", path, path+"/%").Find(&records).Error
		if err != nil {
			s.log.WithError(err).WithField("path", path).Error("Failed to reload relayed subtree")
			return
		}
		deleteAt(s.tree, splitPath(path))
		for _, rec := range records {
			var v any
			if err := json.Unmarshal(rec.Value, &v); err != nil {
				continue
			}
			setAt(s.tree, splitPath(rec.Path), v)
		}
	}
	s.notifyLocked(path)
}
