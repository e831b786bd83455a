// Package token generates opaque bearer tokens for admin sessions and
// password resets.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// New generates an opaque token: a ULID prefix (sortable, collision-free)
// plus 16 random bytes hex-encoded. The random suffix keeps the token
// unguessable even though ULIDs embed a timestamp.
func New() string {
	entropyLock.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyLock.Unlock()

	suffix := make([]byte, 16)
	if _, err := rand.Read(suffix); err != nil {
		panic(err) // crypto/rand failure is not recoverable
	}
	return id.String() + hex.EncodeToString(suffix)
}
