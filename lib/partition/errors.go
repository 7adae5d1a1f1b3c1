package partition

import (
	"errors"
	"fmt"
)

var (
	// ErrOpenDevice is returned when the backing file cannot be opened as a disk
	ErrOpenDevice = errors.New("open disk device")

	// ErrEmptyPartition is returned for a zero-byte partition, which has no sector range
	ErrEmptyPartition = errors.New("partition is empty")

	// ErrPartitionName is returned when a name cannot be stored in a GPT entry
	ErrPartitionName = errors.New("invalid partition name")

	// ErrUnknownFilesystem is returned when a filesystem hint has no partition type
	ErrUnknownFilesystem = errors.New("unknown filesystem type")

	// ErrInvalidRange is returned when a partition ends before it starts
	ErrInvalidRange = errors.New("invalid sector range")

	// ErrTableOverflow is returned when partitions run into the backup GPT area
	ErrTableOverflow = errors.New("partitions exceed usable disk area")

	// ErrNoTable is returned when partitions are added before CreateTable
	ErrNoTable = errors.New("partition table not created")

	// ErrCommit is returned when writing the partition table fails
	ErrCommit = errors.New("commit partition table")
)

// EntryError ties a failure to one partition entry.
type EntryError struct {
	Index int
	Name  string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("partition %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
