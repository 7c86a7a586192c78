package cache

import (
	"encoding/json"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}

// GetJSON reads and decodes a cached value into dest. A decode failure is
// treated as a miss so stale payload shapes age out naturally.
func GetJSON(c BytesCache, key string, dest interface{}) (bool, error) {
	b, ok, err := c.GetBytes(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes and stores a value.
func SetJSON(c BytesCache, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.SetBytes(key, b, ttl)
}
