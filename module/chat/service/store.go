package service

import (
	"context"
)

// Store adapts the package-level message operations to the relay gateway's
// store interface.
type Store struct{}

func (Store) AddMessageReader(ctx context.Context, messageID, userID string) (*ReadStatus, error) {
	return AddMessageReader(ctx, messageID, userID)
}
