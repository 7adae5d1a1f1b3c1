// Package layout holds the ordered component lists that become the
// partitions of each output image.
package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/ghodss/yaml"
	"github.com/onkernel/cvd2img/lib/disk"
	"github.com/samber/lo"
)

//go:embed layouts.yaml
var defaultLayouts []byte

// ErrInvalidLayout is returned when a layout file fails validation
var ErrInvalidLayout = errors.New("invalid layout")

// Entry is one partition in a layout.
type Entry struct {
	Partition string             `json:"partition"`
	Image     string             `json:"image,omitempty"`
	Blank     *datasize.ByteSize `json:"blank,omitempty"`
}

// Spec converts the entry to the assembler's component spec.
func (e Entry) Spec() disk.ComponentSpec {
	if e.Blank != nil {
		return disk.ComponentSpec{Source: disk.BlankSource(e.Blank.Bytes()), PartitionName: e.Partition}
	}
	return disk.ComponentSpec{Source: disk.FileSource(e.Image), PartitionName: e.Partition}
}

// Layouts is the full set of image layouts.
type Layouts struct {
	// System is assembled from the component directory.
	System []Entry `json:"system"`
	// Properties is assembled from the generated artifacts.
	Properties []Entry `json:"properties"`
}

// Default returns the built-in layouts.
func Default() (*Layouts, error) {
	return Parse(defaultLayouts)
}

// Load reads layouts from a YAML file. An empty path selects the defaults.
func Load(path string) (*Layouts, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout file: %w", err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates YAML layouts.
func Parse(data []byte) (*Layouts, error) {
	var l Layouts
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks both layouts.
func (l *Layouts) Validate() error {
	if err := validateEntries("system", l.System); err != nil {
		return err
	}
	return validateEntries("properties", l.Properties)
}

func validateEntries(name string, entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: %s layout is empty", ErrInvalidLayout, name)
	}

	for i, e := range entries {
		switch {
		case e.Partition == "":
			return fmt.Errorf("%w: %s entry %d has no partition name", ErrInvalidLayout, name, i)
		case e.Image != "" && e.Blank != nil:
			return fmt.Errorf("%w: %s entry %s has both image and blank", ErrInvalidLayout, name, e.Partition)
		case e.Image == "" && e.Blank == nil:
			return fmt.Errorf("%w: %s entry %s has no source", ErrInvalidLayout, name, e.Partition)
		case e.Blank != nil && *e.Blank == 0:
			return fmt.Errorf("%w: %s entry %s has a zero-size blank", ErrInvalidLayout, name, e.Partition)
		}
	}

	names := lo.Map(entries, func(e Entry, _ int) string { return e.Partition })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("%w: %s layout has duplicate partitions %v", ErrInvalidLayout, name, dups)
	}
	return nil
}

// Specs converts entries to component specs, preserving order.
func Specs(entries []Entry) []disk.ComponentSpec {
	return lo.Map(entries, func(e Entry, _ int) disk.ComponentSpec { return e.Spec() })
}
