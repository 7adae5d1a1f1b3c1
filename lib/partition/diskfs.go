package partition

import (
	"fmt"
	"path/filepath"
	"unicode/utf16"

	diskfs "github.com/diskfs/go-diskfs"
	diskpkg "github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/google/uuid"
)

const (
	// maxNameLength is the GPT entry name capacity in UTF-16 code units
	maxNameLength = 36

	// gptTrailerSectors is the backup entry array (128 x 128 bytes) plus backup header
	gptTrailerSectors = 32 + 1

	// guidNamespace prefixes names hashed into deterministic GUIDs
	guidNamespace = "cvd2img:"
)

// filesystemTypes maps filesystem hints to GPT partition types
var filesystemTypes = map[string]gpt.Type{
	"ext2": gpt.LinuxFilesystem,
	"ext3": gpt.LinuxFilesystem,
	"ext4": gpt.LinuxFilesystem,
}

// diskfsTable is a Table backed by go-diskfs. Partitions are buffered in
// memory and written by Commit in one step.
type diskfsTable struct {
	path   string
	disk   *diskpkg.Disk
	table  *gpt.Table
	closed bool
}

// OpenDiskfs opens path with go-diskfs.
func OpenDiskfs(path string) (Table, error) {
	d, err := diskfs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpenDevice, path, err)
	}
	return &diskfsTable{path: path, disk: d}, nil
}

func (t *diskfsTable) CreateTable() error {
	t.table = &gpt.Table{
		LogicalSectorSize:  SectorSize,
		PhysicalSectorSize: SectorSize,
		ProtectiveMBR:      true,
		GUID:               stableGUID(filepath.Base(t.path)),
	}
	return nil
}

func (t *diskfsTable) AddPartition(name string, startSector, endSector uint64, fsHint string) error {
	if t.table == nil {
		return ErrNoTable
	}

	if name == "" || len(utf16.Encode([]rune(name))) > maxNameLength {
		return fmt.Errorf("%w: %q", ErrPartitionName, name)
	}

	partType, ok := filesystemTypes[fsHint]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilesystem, fsHint)
	}

	if endSector < startSector {
		return fmt.Errorf("%w: %d-%d", ErrInvalidRange, startSector, endSector)
	}

	t.table.Partitions = append(t.table.Partitions, &gpt.Partition{
		Start: startSector,
		End:   endSector,
		Size:  (endSector - startSector + 1) * SectorSize,
		Type:  partType,
		Name:  name,
		GUID:  stableGUID(filepath.Base(t.path) + "/" + name),
	})
	return nil
}

func (t *diskfsTable) Commit() error {
	if t.table == nil {
		return ErrNoTable
	}

	totalSectors := uint64(t.disk.Size) / SectorSize
	if totalSectors < FirstSector+gptTrailerSectors {
		return fmt.Errorf("%w: disk has %d sectors", ErrTableOverflow, totalSectors)
	}
	lastUsable := totalSectors - gptTrailerSectors - 1

	for i, p := range t.table.Partitions {
		if p.End > lastUsable {
			return &EntryError{
				Index: i,
				Name:  p.Name,
				Err:   fmt.Errorf("%w: ends at sector %d, last usable is %d", ErrTableOverflow, p.End, lastUsable),
			}
		}
	}

	if err := t.disk.Partition(t.table); err != nil {
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}
	return nil
}

func (t *diskfsTable) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.disk.Close()
}

// stableGUID derives a name-based GUID so rebuilt images are identical
func stableGUID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(guidNamespace+name)).String()
}
