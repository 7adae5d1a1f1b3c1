// Package sparse converts Android sparse images in a component directory to
// raw form in place.
package sparse

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/onkernel/cvd2img/lib/paths"
	"github.com/onkernel/cvd2img/lib/toolrunner"
)

// magic is the sparse header magic as a little-endian uint32 (bytes 3A FF 26 ED).
const magic uint32 = 0xED26FF3A

// Images are normalized before any layout step.
var Images = []string{"super.img", "userdata.img"}

// IsSparse reports whether the file at path starts with the sparse magic.
func IsSparse(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var hdr [4]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return false, fmt.Errorf("read header %s: %w", path, err)
	}

	return binary.LittleEndian.Uint32(hdr[:]) == magic, nil
}

// Normalizer expands sparse images using the component directory's simg2img.
type Normalizer struct {
	paths  *paths.Paths
	runner toolrunner.Runner
	logger *slog.Logger
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(p *paths.Paths, runner toolrunner.Runner, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		paths:  p,
		runner: runner,
		logger: logger,
	}
}

// NormalizeAll normalizes every image in Images, in order.
func (n *Normalizer) NormalizeAll(ctx context.Context) error {
	for _, image := range Images {
		if err := n.Normalize(ctx, image); err != nil {
			return err
		}
	}
	return nil
}

// Normalize converts image to raw form if it is sparse. Raw images are left
// untouched. The converted output is written to a temporary sibling and
// renamed over the original.
func (n *Normalizer) Normalize(ctx context.Context, image string) error {
	src := n.paths.Image(image)

	sparse, err := IsSparse(src)
	if err != nil {
		return err
	}
	if !sparse {
		n.logger.DebugContext(ctx, "image already raw", "image", image)
		return nil
	}

	n.logger.InfoContext(ctx, "converting sparse image", "image", image)

	tmp := tempSibling(src)
	if _, err := n.runner.Run(ctx, paths.Tool(paths.Simg2img), src, tmp); err != nil {
		os.Remove(tmp) // cleanup
		return fmt.Errorf("convert %s: %w", image, err)
	}

	if err := os.Rename(tmp, src); err != nil {
		os.Remove(tmp) // cleanup
		return fmt.Errorf("replace %s: %w", src, err)
	}

	return nil
}

// tempSibling swaps the extension of path for .tmp
func tempSibling(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".tmp"
}
