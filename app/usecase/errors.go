package usecase

import "errors"

var (
	ErrMissingConfiguration = errors.New("missing required configuration")
	ErrUnknownPreset        = errors.New("unknown preset")
)
