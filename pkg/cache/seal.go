package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelope wraps cached data with its checksum and expiration.
type envelope struct {
	Data      []byte    `json:"data"`
	Checksum  string    `json:"checksum"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Seal wraps data in a checksummed envelope. A positive ttl records an
// absolute expiry inside the envelope.
func Seal(data []byte, ttl time.Duration) ([]byte, error) {
	env := envelope{Data: data, Checksum: Hash(data)}
	if ttl > 0 {
		env.ExpiresAt = time.Now().Add(ttl)
	}
	return json.Marshal(env)
}

// Open verifies a sealed envelope and returns its payload. It returns
// ErrCorrupt when the envelope cannot be decoded or the checksum does not
// match, and ok == false when the entry has expired.
func Open(sealed []byte) (data []byte, ok bool, err error) {
	var env envelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Checksum == "" || Hash(env.Data) != env.Checksum {
		return nil, false, ErrCorrupt
	}
	if !env.ExpiresAt.IsZero() && time.Now().After(env.ExpiresAt) {
		return nil, false, nil
	}
	return env.Data, true, nil
}
