package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed backend attempt for the retry/fallback
// state machine.
type FailureKind string

const (
	FailureUnreachable FailureKind = "unreachable"
	FailureTimeout     FailureKind = "timeout"
	FailureMalformed   FailureKind = "malformed-response"
	FailureRejected    FailureKind = "rejected"
)

// BackendError is the failure half of a translation attempt result.
type BackendError struct {
	Kind    FailureKind
	Backend ModelSpec
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Kind, e.Err)
	}
	return fmt.Sprintf("backend %s: %s", e.Backend, e.Kind)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ClassifyFailure extracts the failure kind from an attempt error.
// Errors that are not BackendErrors count as unreachable.
func ClassifyFailure(err error) FailureKind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	return FailureUnreachable
}

// RightsBlockedError halts a run before any chunking or backend call.
type RightsBlockedError struct {
	Scheme string
}

func (e *RightsBlockedError) Error() string {
	return fmt.Sprintf("rights-protected container: %s", e.Scheme)
}

// ErrWorkspaceCorrupt marks persisted progress that cannot be read or is
// inconsistent. It is fatal for the document; the file is never reset.
var ErrWorkspaceCorrupt = errors.New("workspace corrupt")

// ErrWorkspaceLocked reports a concurrent run against the same document key.
var ErrWorkspaceLocked = errors.New("workspace locked by another run")

// ErrChunkExhausted reports that every configured backend ran out of retries
// for one chunk. The run continues; the chapter stays incomplete.
var ErrChunkExhausted = errors.New("all backends exhausted for chunk")

// ErrIncomplete reports a run that finished with failed chunks left over.
var ErrIncomplete = errors.New("translation incomplete")
