package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// tokenCache is the on-disk session remnant: just the refresh token plus
// identity hints for display before the first refresh completes. Mirrored
// data never goes here.
type tokenCache struct {
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
}

func saveTokenCache(path string, tc tokenCache) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	data, err := json.Marshal(tc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}

// loadTokenCache returns (nil, nil) when the cache file does not exist.
func loadTokenCache(path string) (*tokenCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token cache: %w", err)
	}
	var tc tokenCache
	if err := json.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("decode token cache: %w", err)
	}
	return &tc, nil
}

func clearTokenCache(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
