package models

import "errors"

// Recording errors. All are recoverable at the call site.
var (
	ErrAlreadyActive          = errors.New("crash video recording is already active")
	ErrNotRecording           = errors.New("no recording in progress")
	ErrPrerequisiteMissing    = errors.New("required capability is unavailable")
	ErrStorageUnavailable     = errors.New("storage unavailable")
	ErrEmptyOrMissingArtifact = errors.New("video artifact is empty or missing")
)
