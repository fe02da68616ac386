package media

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("media: object not found")

// AvatarKey is the object key holding a persona's avatar. One key per
// persona, so uploading a new avatar replaces the previous one.
func AvatarKey(personaID string) string {
	return "avatars/" + personaID
}

// Store holds persona avatars and other uploaded media. Objects are
// addressed by key; URL returns a publicly reachable address suitable for
// embedding in a webhook message.
// All operations use io.Reader/io.Writer for streaming so large uploads are
// not held in memory.
type Store interface {
	// Put stores an object under key. size is the number of bytes that
	// will be read from r. Overwriting an existing key is allowed.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get retrieves an object by key and writes it to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// URL returns the public address of a stored object.
	URL(key string) string

	// Delete removes an object. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error
}
