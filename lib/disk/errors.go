package disk

import "errors"

var (
	// ErrCreateImage is returned when the output image cannot be created
	ErrCreateImage = errors.New("create disk image")

	// ErrWriteImage is returned when writing to the output image fails
	ErrWriteImage = errors.New("write disk image")

	// ErrOpenSource is returned when a source image cannot be opened or resolved
	ErrOpenSource = errors.New("open source image")

	// ErrReadSource is returned when reading a source image fails
	ErrReadSource = errors.New("read source image")

	// ErrShortSource is returned when a source yields fewer bytes than its size
	ErrShortSource = errors.New("source image shorter than its size")
)
