package tokenstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// File keeps the token in a small JSON document of key/value pairs, readable
// only by the owning user.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultFilePath is ~/.screenctl/credentials.
func DefaultFilePath() (string, error) {
	homeDir, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "error locating user's home directory")
	}
	return filepath.Join(homeDir, ".screenctl", "credentials"), nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Get(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return "", false, err
	}
	token, ok := entries[AccessTokenKey]
	return token, ok, nil
}

func (f *File) Set(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	entries[AccessTokenKey] = token
	return f.write(entries)
}

func (f *File) Remove(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := entries[AccessTokenKey]; !ok {
		return nil
	}
	return f.removeToken(entries)
}

func (f *File) RemoveIfCurrent(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return false, err
	}
	if current, ok := entries[AccessTokenKey]; !ok || current != token {
		return false, nil
	}
	return true, f.removeToken(entries)
}

// removeToken drops the token entry, deleting the file once nothing else is
// left in it.
func (f *File) removeToken(entries map[string]string) error {
	delete(entries, AccessTokenKey)
	if len(entries) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "error deleting %s", f.path)
		}
		return nil
	}
	return f.write(entries)
}

func (f *File) read() (map[string]string, error) {
	entries := map[string]string{}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, errors.Wrapf(err, "error reading credentials file at %s", f.path)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "error parsing credentials file at %s", f.path)
	}
	return entries, nil
}

func (f *File) write(entries map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrapf(err, "error creating %s", dir)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "error marshaling credentials")
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return errors.Wrapf(err, "error writing to %s", f.path)
	}
	return nil
}
