package disk

import "strconv"

// ReservedBytes is the zero-filled region written before the first and
// after the last partition payload, leaving room for the GPT header and its
// backup.
const ReservedBytes = 20480

// Source is the payload of one partition: either a file relative to the
// assembler's base directory or a run of zero bytes.
type Source struct {
	File  string
	Blank uint64
}

// FileSource returns a Source backed by the named file.
func FileSource(name string) Source {
	return Source{File: name}
}

// BlankSource returns a Source of size zero bytes.
func BlankSource(size uint64) Source {
	return Source{Blank: size}
}

// IsBlank reports whether the source is synthetic zero fill.
func (s Source) IsBlank() bool {
	return s.File == ""
}

// Name returns the file name, or "blank:<size>" for blank regions.
func (s Source) Name() string {
	if s.IsBlank() {
		return "blank:" + strconv.FormatUint(s.Blank, 10)
	}
	return s.File
}

// ComponentSpec pairs a payload source with the partition it fills.
// Order within a list defines on-disk order.
type ComponentSpec struct {
	Source        Source
	PartitionName string
}

// LaidOutPartition records what was actually written for a ComponentSpec.
type LaidOutPartition struct {
	SourceName    string
	PartitionName string
	ByteSize      uint64
}

// ImageSize returns the length of a disk image assembled with layout.
func ImageSize(layout []LaidOutPartition) uint64 {
	size := uint64(2 * ReservedBytes)
	for _, p := range layout {
		size += p.ByteSize
	}
	return size
}
