// Package feed owns posts and their reactions: creation, like/dislike
// toggles, append-only comments, takedown-aware visibility and the
// leaderboard projection.
package feed

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/notify"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

type Service struct {
	store    *store.Store
	notifier *notify.Service
	cache    *Cache
	log      *logrus.Logger
}

func New(st *store.Store, notifier *notify.Service, cache *Cache, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: st, notifier: notifier, cache: cache, log: log}
}

// CreatePost validates and appends a post. At least one of text, photo or
// video is required; the author's display fields are snapshotted onto the
// record.
func (s *Service) CreatePost(ctx context.Context, author *models.User, text, photoURL, videoURL string) (string, error) {
	if author.IsBanned {
		return "", models.ErrPermissionDenied
	}
	text = strings.TrimSpace(text)
	if text == "" && photoURL == "" && videoURL == "" {
		return "", models.ErrInvalidInput
	}
	post := models.Post{
		UserID:    author.ID,
		UserName:  author.Name,
		UserPhoto: author.PhotoURL,
		Text:      text,
		PhotoURL:  photoURL,
		VideoURL:  videoURL,
		Timestamp: s.store.Now(),
	}
	id, err := s.store.Push(ctx, "posts", post)
	if err != nil {
		return "", err
	}
	s.cache.Invalidate(ctx)
	s.log.WithFields(logrus.Fields{"post": id, "author": author.ID}).Info("Post created")
	return id, nil
}

func (s *Service) Post(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	ok, err := s.store.Get(ctx, "posts/"+id, &post)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	post.ID = id
	return &post, nil
}

// Posts returns every post newest-first, unfiltered. Callers that serve a
// viewer go through Visible.
func (s *Service) Posts(ctx context.Context) ([]models.Post, error) {
	var all map[string]models.Post
	if _, err := s.store.Get(ctx, "posts", &all); err != nil {
		return nil, err
	}
	out := make([]models.Post, 0, len(all))
	for id, post := range all {
		post.ID = id
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Visible applies the moderation overlay and an optional search term for a
// viewer: takedown content is hidden from non-admins, always shown to
// admins.
func Visible(posts []models.Post, viewer *models.User, term string) []models.Post {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if post.IsTakenDown && (viewer == nil || !viewer.IsAdmin) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(post.Text), term) &&
			!strings.Contains(strings.ToLower(post.UserName), term) {
			continue
		}
		out = append(out, post)
	}
	return out
}

// Reels is the video slice of the visible feed.
func Reels(posts []models.Post, viewer *models.User) []models.Post {
	out := make([]models.Post, 0)
	for _, post := range Visible(posts, viewer, "") {
		if post.VideoURL != "" {
			out = append(out, post)
		}
	}
	return out
}

// reactGuard is the shared precondition for likes, dislikes and comments:
// banned actors lose reaction privileges, and takedown content takes no
// reactions from anyone, admins included.
func (s *Service) reactGuard(ctx context.Context, actor *models.User, postID string) (*models.Post, error) {
	if actor.IsBanned {
		return nil, models.ErrPermissionDenied
	}
	post, err := s.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsTakenDown {
		return nil, models.ErrPermissionDenied
	}
	return post, nil
}

// ToggleLike flips the actor's like. The post author gets one notification
// on the off -> on transition unless they liked their own post.
func (s *Service) ToggleLike(ctx context.Context, actor *models.User, postID string) error {
	post, err := s.reactGuard(ctx, actor, postID)
	if err != nil {
		return err
	}
	path := "posts/" + postID + "/likes/" + actor.ID
	if post.Likes[actor.ID] {
		if err := s.store.Delete(ctx, path); err != nil {
			return err
		}
		s.cache.Invalidate(ctx)
		return nil
	}
	if err := s.store.Put(ctx, path, true); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	if post.UserID != actor.ID {
		return s.notifier.Fanout(ctx, actor, post.UserID, models.NotificationLike)
	}
	return nil
}

// ToggleDislike flips the actor's dislike. Turning a dislike on clears a
// prior like; the reverse does not hold. Dislikes never notify.
func (s *Service) ToggleDislike(ctx context.Context, actor *models.User, postID string) error {
	post, err := s.reactGuard(ctx, actor, postID)
	if err != nil {
		return err
	}
	path := "posts/" + postID + "/dislikes/" + actor.ID
	if post.Dislikes[actor.ID] {
		return s.store.Delete(ctx, path)
	}
	if err := s.store.Put(ctx, path, true); err != nil {
		return err
	}
	if post.Likes[actor.ID] {
		if err := s.store.Delete(ctx, "posts/"+postID+"/likes/"+actor.ID); err != nil {
			return err
		}
		s.cache.Invalidate(ctx)
	}
	return nil
}

// AddComment appends to the post's comment log and notifies the author
// unless they commented on their own post.
func (s *Service) AddComment(ctx context.Context, actor *models.User, postID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.ErrInvalidInput
	}
	post, err := s.reactGuard(ctx, actor, postID)
	if err != nil {
		return "", err
	}
	comment := models.Comment{
		UserID:    actor.ID,
		UserName:  actor.Name,
		Text:      text,
		Timestamp: s.store.Now(),
	}
	id, err := s.store.Push(ctx, "posts/"+postID+"/comments", comment)
	if err != nil {
		return "", err
	}
	if post.UserID != actor.ID {
		if err := s.notifier.Fanout(ctx, actor, post.UserID, models.NotificationComment); err != nil {
			return id, err
		}
	}
	return id, nil
}

// LeaderboardEntry ranks a user by likes received across their posts. The
// count is a pure projection of the posts tree, recomputed on demand and
// cached briefly, never stored as an authoritative counter.
type LeaderboardEntry struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	PhotoURL   string `json:"photoURL"`
	TotalLikes int    `json:"totalLikes"`
}

func (s *Service) Leaderboard(ctx context.Context, users []models.User) ([]LeaderboardEntry, error) {
	if cached, ok := s.cache.GetLeaderboard(ctx); ok {
		return cached, nil
	}
	posts, err := s.Posts(ctx)
	if err != nil {
		return nil, err
	}
	likes := map[string]int{}
	for _, post := range posts {
		likes[post.UserID] += len(post.Likes)
	}
	out := make([]LeaderboardEntry, 0, len(users))
	for _, user := range users {
		out = append(out, LeaderboardEntry{
			UserID:     user.ID,
			Name:       user.Name,
			PhotoURL:   user.PhotoURL,
			TotalLikes: likes[user.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalLikes != out[j].TotalLikes {
			return out[i].TotalLikes > out[j].TotalLikes
		}
		return out[i].UserID < out[j].UserID
	})
	s.cache.SetLeaderboard(ctx, out)
	return out, nil
}
