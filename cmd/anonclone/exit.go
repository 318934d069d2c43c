package cmd

import (
	"errors"

	"github.com/kerbaras/anonclone/pkg/services"
	"github.com/kerbaras/anonclone/pkg/sources"
)

// Exit codes
const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitInvalidArgs       = 2
	ExitRateLimited       = 3
	ExitMalformedManifest = 4
	ExitIncomplete        = 5
)

// usageError marks bad flags or arguments.
type usageError struct {
	err error
}

func (e usageError) Error() string {
	return e.err.Error()
}

func (e usageError) Unwrap() error {
	return e.err
}

func ExitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitInvalidArgs
	case errors.Is(err, sources.ErrRateLimited):
		return ExitRateLimited
	case errors.Is(err, sources.ErrMalformedManifest):
		return ExitMalformedManifest
	case errors.Is(err, services.ErrIncomplete):
		return ExitIncomplete
	default:
		return ExitGeneralError
	}
}
