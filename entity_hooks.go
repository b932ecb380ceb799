package gpa

import "context"

// =====================================
// Entity Hook Interfaces
// =====================================

// ValidationHook is called to validate an entity before save/update.
// It runs before the write transaction is opened.
type ValidationHook interface {
	Validate(ctx context.Context) error
}
