package session

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
)

// DefaultKey is the client-side cache key.
const DefaultKey = "md3:user"

// Entry is the cached identity: the user's fields flattened with cache metadata.
type Entry struct {
	entity.User
	PasswordFallback   string    `json:"passwordFallback,omitempty"`
	NormalizedUsername string    `json:"normalizedUsername"`
	AvatarURL          *string   `json:"avatarUrl"`
	StoredAt           time.Time `json:"storedAt"`
}

// Record is what a Store keeps under a key.
type Record struct {
	Key                string
	NormalizedUsername string
	Payload            []byte
	StoredAt           time.Time
}
