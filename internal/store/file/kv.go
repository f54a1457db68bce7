// Package file provides filesystem-backed stores for standalone mode.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV is a JSON-file key-value store. Every Set persists the whole map;
// fine for the standalone recurrence cache, which is small and
// idempotently overwritable.
type KV struct {
	path string
	mu   sync.RWMutex
	m    map[string]string
}

// NewKV opens (or creates) the JSON store at path.
func NewKV(path string) (*KV, error) {
	kv := &KV{path: path, m: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return kv, nil
		}
		return nil, fmt.Errorf("read kv store: %w", err)
	}
	if err := json.Unmarshal(data, &kv.m); err != nil {
		return nil, fmt.Errorf("parse kv store %s: %w", path, err)
	}
	return kv, nil
}

func (kv *KV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *KV) Set(_ context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return kv.saveLocked()
}

func (kv *KV) Close() error { return nil }

func (kv *KV) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(kv.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(kv.m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(kv.path, data, 0644)
}
