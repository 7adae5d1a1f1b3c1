// Package partition writes a GPT describing the partitions laid out by the
// disk assembler.
package partition

import (
	"fmt"

	"github.com/onkernel/cvd2img/lib/disk"
)

const (
	// SectorSize is the logical sector size of every image.
	SectorSize = 512

	// FirstSector is where the first partition starts, right after the
	// space reserved for the primary GPT.
	FirstSector = disk.ReservedBytes / SectorSize

	// FilesystemExt2 is the filesystem hint given to every partition.
	// Nothing is formatted; it only selects the partition type.
	FilesystemExt2 = "ext2"
)

// Table is the partitioning capability the builder needs. Implementations
// must not modify the backing file before Commit.
type Table interface {
	CreateTable() error
	AddPartition(name string, startSector, endSector uint64, fsHint string) error
	Commit() error
	Close() error
}

// Opener opens the file at path as a partitionable disk.
type Opener func(path string) (Table, error)

// Entry is one planned partition.
type Entry struct {
	Name           string
	StartSector    uint64
	EndSector      uint64
	FilesystemHint string
}

// Sectors returns the number of sectors the entry spans.
func (e Entry) Sectors() uint64 {
	return e.EndSector - e.StartSector + 1
}

// Plan computes contiguous entries for layout: the first starts at
// FirstSector and each spans ceil(ByteSize/SectorSize) sectors.
func Plan(layout []disk.LaidOutPartition) ([]Entry, error) {
	entries := make([]Entry, 0, len(layout))
	start := uint64(FirstSector)

	for i, p := range layout {
		if p.ByteSize == 0 {
			return nil, &EntryError{Index: i, Name: p.PartitionName, Err: ErrEmptyPartition}
		}
		length := (p.ByteSize-1)/SectorSize + 1

		entries = append(entries, Entry{
			Name:           p.PartitionName,
			StartSector:    start,
			EndSector:      start + length - 1,
			FilesystemHint: FilesystemExt2,
		})
		start += length
	}

	return entries, nil
}

// Build writes a fresh GPT for layout into outFile. The table is committed
// as the final step; entries are validated before anything is written.
func Build(layout []disk.LaidOutPartition, outFile string, open Opener) error {
	entries, err := Plan(layout)
	if err != nil {
		return err
	}

	table, err := open(outFile)
	if err != nil {
		return err
	}
	defer table.Close()

	if err := table.CreateTable(); err != nil {
		return fmt.Errorf("create table on %s: %w", outFile, err)
	}

	for i, e := range entries {
		if err := table.AddPartition(e.Name, e.StartSector, e.EndSector, e.FilesystemHint); err != nil {
			return &EntryError{Index: i, Name: e.Name, Err: err}
		}
	}

	if err := table.Commit(); err != nil {
		return fmt.Errorf("%s: %w", outFile, err)
	}

	return table.Close()
}
