// Package disk lays partition payloads out back to back in a single raw
// disk image file.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	securejoin "github.com/cyphar/filepath-securejoin"
	cvdotel "github.com/onkernel/cvd2img/lib/otel"
)

// Assembler writes disk images from ordered component lists.
type Assembler struct {
	logger  *slog.Logger
	metrics *cvdotel.PipelineMetrics
}

// NewAssembler creates a new Assembler
func NewAssembler(logger *slog.Logger, metrics *cvdotel.PipelineMetrics) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		logger:  logger,
		metrics: metrics,
	}
}

// Assemble creates outFile as [reserved][payload 1]...[payload n][reserved].
// File sources are resolved under baseDir and copied at their current size;
// blank sources are written as zeros. The returned layout has one entry per
// component spec, in order.
func (a *Assembler) Assemble(ctx context.Context, baseDir string, specs []ComponentSpec, outFile string) ([]LaidOutPartition, error) {
	out, err := os.Create(outFile)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCreateImage, outFile, err)
	}
	defer out.Close()

	// Space reserved for GPT header
	if err := writeZeros(out, ReservedBytes); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrWriteImage, outFile, err)
	}

	parts := make([]LaidOutPartition, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var size uint64
		if spec.Source.IsBlank() {
			size = spec.Source.Blank
			if err := writeZeros(out, size); err != nil {
				return nil, fmt.Errorf("%w %s: %w", ErrWriteImage, outFile, err)
			}
		} else {
			size, err = a.copySource(baseDir, spec.Source.File, out, outFile)
			if err != nil {
				return nil, err
			}
		}

		a.logger.InfoContext(ctx, "laid out partition",
			"image", spec.Source.Name(),
			"partition", spec.PartitionName,
			"size", datasize.ByteSize(size).HumanReadable())

		parts = append(parts, LaidOutPartition{
			SourceName:    spec.Source.Name(),
			PartitionName: spec.PartitionName,
			ByteSize:      size,
		})
	}

	// Space reserved for GPT footer
	if err := writeZeros(out, ReservedBytes); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrWriteImage, outFile, err)
	}

	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrWriteImage, outFile, err)
	}

	a.metrics.RecordBytes(ctx, filepath.Base(outFile), int64(ImageSize(parts)))

	return parts, nil
}

// copySource copies exactly the stat size of name into out
func (a *Assembler) copySource(baseDir, name string, out io.Writer, outFile string) (uint64, error) {
	path, err := securejoin.SecureJoin(baseDir, name)
	if err != nil {
		return 0, fmt.Errorf("%w %s: %w", ErrOpenSource, name, err)
	}

	src, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w %s: %w", ErrOpenSource, path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w %s: %w", ErrOpenSource, path, err)
	}
	size := uint64(info.Size())

	if size == 0 {
		return 0, nil
	}

	buf := make([]byte, BestBlockSize(size))
	var copied uint64
	for copied < size {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return copied, fmt.Errorf("%w %s: %w", ErrWriteImage, outFile, werr)
			}
			copied += uint64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return copied, fmt.Errorf("%w %s: %w", ErrReadSource, path, err)
		}
	}

	if copied != size {
		return copied, fmt.Errorf("%w: %s copied %d of %d bytes", ErrShortSource, path, copied, size)
	}

	return size, nil
}

// writeZeros writes size zero bytes in BestBlockSize chunks
func writeZeros(w io.Writer, size uint64) error {
	if size == 0 {
		return nil
	}
	bs := BestBlockSize(size)
	buf := make([]byte, bs)
	for written := uint64(0); written < size; written += bs {
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
