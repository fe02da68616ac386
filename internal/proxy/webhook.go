package proxy

import (
	"context"
	"errors"
)

// ErrExternalGone is returned by Executor implementations when the delivered
// message no longer exists. Callers treat it as a non-fatal outcome: delete
// proceeds to remove the local record, edit reports not-found to the user.
var ErrExternalGone = errors.New("delivered message is gone")

// EditRequest describes a partial update to a delivered message. Nil fields
// are left unchanged. Changing DisplayName or AvatarURL may require the
// executor to replace the message, so Edit returns the current external id.
type EditRequest struct {
	Content     *string
	DisplayName *string
	AvatarURL   *string
}

// Executor delivers, edits, and removes proxied messages through an external
// transport (the Discord webhook API in production).
type Executor interface {
	// Send delivers content to a channel under the given identity and
	// returns the external message id.
	Send(ctx context.Context, channelID, displayName, avatarURL, content string) (string, error)

	// Edit applies a partial update to a delivered message and returns the
	// message's current external id, which may differ from the input when
	// the transport cannot edit identity fields in place.
	Edit(ctx context.Context, channelID, externalID string, req EditRequest) (string, error)

	// Delete removes a delivered message. Returns ErrExternalGone if it no
	// longer exists.
	Delete(ctx context.Context, channelID, externalID string) error
}
