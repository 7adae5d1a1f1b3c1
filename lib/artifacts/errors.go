package artifacts

import "errors"

var (
	// ErrUnsupportedArch is returned for an architecture other than x86_64 or aarch64
	ErrUnsupportedArch = errors.New("unsupported architecture")

	// ErrInvalidBoundary is returned when padding to a non-positive boundary
	ErrInvalidBoundary = errors.New("invalid padding boundary")
)
