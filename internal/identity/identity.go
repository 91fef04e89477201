// Package identity owns the canonical user records: provisioning on first
// sign-in, profile updates, the credential registry, and the allow-list
// derivation of admin status applied on every observation.
package identity

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

type Service struct {
	store      *store.Store
	privileged func(email string) bool
	tokens     *TokenIssuer
	log        *logrus.Logger
}

func New(st *store.Store, privileged func(string) bool, tokens *TokenIssuer, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: st, privileged: privileged, tokens: tokens, log: log}
}

func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Register validates credentials the same way the classic sign-up form does,
// hashes the password and provisions the user record. Returns the new user
// ID.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return "", models.ErrInvalidInput
	case email == "" || !strings.Contains(email, "@"):
		return "", models.ErrInvalidInput
	case password == "":
		return "", models.ErrInvalidInput
	}

	var registry map[string]models.Credential
	if _, err := s.store.Get(ctx, "credentials", &registry); err != nil {
		return "", err
	}
	for _, cred := range registry {
		if strings.EqualFold(cred.Email, email) {
			return "", models.ErrInvalidInput
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	uid := uuid.NewString()
	err = s.store.Put(ctx, "credentials/"+uid, models.Credential{
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return "", err
	}
	if err := s.Ensure(ctx, uid, name, email, ""); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"user": uid, "email": email}).Info("User registered")
	return uid, nil
}

// Login verifies the password and issues a signed token for the identity.
func (s *Service) Login(ctx context.Context, email, password string) (string, string, error) {
	var registry map[string]models.Credential
	if _, err := s.store.Get(ctx, "credentials", &registry); err != nil {
		return "", "", err
	}
	for uid, cred := range registry {
		if !strings.EqualFold(cred.Email, email) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
			s.log.WithField("email", email).Warn("Invalid password attempt")
			return "", "", models.ErrPermissionDenied
		}
		user, err := s.Observe(ctx, uid)
		if err != nil {
			return "", "", err
		}
		token, err := s.tokens.Generate(uid, user.Name)
		if err != nil {
			return "", "", err
		}
		return uid, token, nil
	}
	return "", "", models.ErrNotFound
}

// Ensure provisions a default record for a signed-in identity that has none
// yet. Existing records are left untouched.
func (s *Service) Ensure(ctx context.Context, uid, name, email, photoURL string) error {
	if s.store.Exists(ctx, "users/"+uid) {
		return nil
	}
	if name == "" {
		name = "Anonymous Shadow"
	}
	if photoURL == "" {
		photoURL = "https://api.dicebear.com/7.x/initials/svg?seed=" + uid
	}
	user := models.User{
		Name:     name,
		Email:    email,
		Bio:      "A wandering soul.",
		PhotoURL: photoURL,
		IsAdmin:  s.privileged(email),
	}
	return s.store.Put(ctx, "users/"+uid, user)
}

// Observe reads a user record the way a client session does: admin status is
// recomputed from the allow-list, and a stored flag that disagrees with the
// derivation is corrected in place. The stored flag is never the root of
// trust.
func (s *Service) Observe(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	ok, err := s.store.Get(ctx, "users/"+uid, &user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	user.ID = uid

	derived := s.privileged(user.Email)
	if user.IsAdmin != derived {
		s.log.WithFields(logrus.Fields{"user": uid, "admin": derived}).Warn("Correcting stored admin flag")
		if err := s.store.Put(ctx, "users/"+uid+"/isAdmin", derived); err != nil {
			return nil, err
		}
	}
	user.IsAdmin = derived
	return &user, nil
}

// Get is Observe without the corrective write, for records looked at in
// bulk listings.
func (s *Service) Get(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	ok, err := s.store.Get(ctx, "users/"+uid, &user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	user.ID = uid
	user.IsAdmin = s.privileged(user.Email)
	return &user, nil
}

// List returns every user record with derived admin status, sorted by name
// for stable output.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var all map[string]models.User
	if _, err := s.store.Get(ctx, "users", &all); err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(all))
	for uid, user := range all {
		user.ID = uid
		user.IsAdmin = s.privileged(user.Email)
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateProfile lets the owner change display fields. Email, ban state and
// role fields are not reachable from here.
func (s *Service) UpdateProfile(ctx context.Context, uid, name, bio, photoURL string) error {
	if !s.store.Exists(ctx, "users/"+uid) {
		return models.ErrNotFound
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
	return s.store.Update(ctx, "users/"+uid, fields)
}

// AddCapture appends an image URL to the profile reel. The binary itself is
// uploaded elsewhere; only the opaque URI lands here.
func (s *Service) AddCapture(ctx context.Context, uid, url string) error {
	if strings.TrimSpace(url) == "" {
		return models.ErrInvalidInput
	}
	if !s.store.Exists(ctx, "users/"+uid) {
		return models.ErrNotFound
	}
	_, err := s.store.Push(ctx, "users/"+uid+"/recentCaptures", url)
	return err
}
