// Package auth supplies session credentials. Acquiring and refreshing tokens
// is left to an external login tool; this package only reads what that tool
// cached, or a token set in the profile.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
)

var (
	ErrNoCachedToken = errors.New("no cached token")
	ErrTokenExpired  = errors.New("cached token expired")
)

type cachedToken struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Profile     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"profile"`
}

// FileCache reads <cacheDir>/<userID>.json.
type FileCache struct {
	// Now is used for the expiry check; time.Now when nil.
	Now func() time.Time
}

func (f FileCache) Token(ctx context.Context, userID, cacheDir string) (game.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return game.Credentials{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return game.Credentials{}, errors.New("user identifier is required")
	}

	dir, err := filepath.Abs(cacheDir)
	if err != nil {
		return game.Credentials{}, fmt.Errorf("resolving cache dir %s: %w", cacheDir, err)
	}
	path := filepath.Join(dir, CacheFileName(userID))

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return game.Credentials{}, fmt.Errorf("%w for %s in %s", ErrNoCachedToken, userID, dir)
	}
	if err != nil {
		return game.Credentials{}, fmt.Errorf("reading token cache: %w", err)
	}

	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return game.Credentials{}, fmt.Errorf("decoding token cache %s: %w", path, err)
	}
	if tok.AccessToken == "" {
		return game.Credentials{}, fmt.Errorf("%w for %s: empty access token", ErrNoCachedToken, userID)
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	if !tok.ExpiresAt.IsZero() && !now().Before(tok.ExpiresAt) {
		return game.Credentials{}, fmt.Errorf("%w for %s at %s", ErrTokenExpired, userID, tok.ExpiresAt.Format(time.RFC3339))
	}

	name := tok.Profile.Name
	if name == "" {
		name = userID
	}
	return game.Credentials{AccessToken: tok.AccessToken, ProfileName: name}, nil
}

// CacheFileName keeps user identifiers (often e-mail addresses) filesystem safe.
func CacheFileName(userID string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(userID) + ".json"
}

// Static returns the same credentials every time. Offline servers accept an
// empty access token.
type Static struct {
	AccessToken string
	ProfileName string
}

func (s Static) Token(ctx context.Context, userID, _ string) (game.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return game.Credentials{}, err
	}
	name := s.ProfileName
	if name == "" {
		name = userID
	}
	return game.Credentials{AccessToken: s.AccessToken, ProfileName: name}, nil
}
