package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

var (
	validFileIDRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	invalidChars  = regexp.MustCompile(`[^a-z0-9_-]+`)
	edgeDashes    = regexp.MustCompile(`(^-+|-+$)`)
)

// UserStore keeps one JSON file per user under dir. User tokens are
// opaque strings, so they are sanitized into safe file names.
type UserStore struct {
	dir string
}

// NewUserStore creates a user store rooted at dir.
func NewUserStore(dir string) (*UserStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}
	return &UserStore{dir: dir}, nil
}

// GetUser loads a user record. A missing user is (nil, nil), not an error.
func (s *UserStore) GetUser(_ context.Context, uid string) (*store.User, error) {
	data, err := os.ReadFile(s.userPath(uid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read user %s: %w", uid, err)
	}
	var u store.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parse user %s: %w", uid, err)
	}
	return &u, nil
}

func (s *UserStore) SaveUser(_ context.Context, u *store.User) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", u.UID, err)
	}
	return os.WriteFile(s.userPath(u.UID), data, 0644)
}

func (s *UserStore) userPath(uid string) string {
	return filepath.Join(s.dir, normalizeFileID(uid)+".json")
}

// normalizeFileID converts an opaque user token into a safe file name:
// lowercase, max 64 chars, only [a-z0-9_-], invalid runs collapsed to
// "-", edge dashes stripped, empty result replaced by "default".
func normalizeFileID(id string) string {
	lower := strings.ToLower(strings.TrimSpace(id))
	if validFileIDRe.MatchString(lower) {
		return lower
	}
	result := invalidChars.ReplaceAllString(lower, "-")
	result = edgeDashes.ReplaceAllString(result, "")
	if len(result) > 64 {
		result = result[:64]
	}
	if result == "" {
		return "default"
	}
	return result
}
