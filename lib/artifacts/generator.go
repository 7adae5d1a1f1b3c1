// Package artifacts generates the derived partition images placed in the
// properties image: the U-Boot environment, the chained vbmeta and the
// bootconfig.
package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/onkernel/cvd2img/lib/paths"
	"github.com/onkernel/cvd2img/lib/toolrunner"
)

// Output file names inside the generator's output directory.
const (
	UbootEnvImage   = "uboot_env.img"
	UbootEnvInput   = "uboot_env_input"
	VBMetaImage     = "vbmeta.img"
	BootconfigImage = "bootconfig"
)

const (
	// Algorithm signs every hash footer and the vbmeta image.
	Algorithm = "SHA256_RSA4096"

	// HashFooterPartitionSize is the fixed size of footer-signed images.
	HashFooterPartitionSize = 73728

	// VBMetaBoundary is the alignment vbmeta.img is padded past.
	VBMetaBoundary = 65536
)

// ubootEnv is the U-Boot environment compiled into uboot_env.img.
const ubootEnv = `uenvcmd=setenv bootargs "$cbootargs console=hvc0 earlycon=pl011,mmio32,0x9000000 " && run bootcmd_android`

// Chain indexes of the partitions vbmeta.img delegates to.
var vbmetaChain = []struct {
	partition string
	index     int
}{
	{"uboot_env", 1},
	{"bootconfig", 2},
}

// Generator writes artifacts into outDir using the component directory's
// tools and keys.
type Generator struct {
	paths  *paths.Paths
	runner toolrunner.Runner
	outDir string
	logger *slog.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(p *paths.Paths, runner toolrunner.Runner, outDir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		paths:  p,
		runner: runner,
		outDir: outDir,
		logger: logger,
	}
}

// OutDir returns the directory artifacts are written to.
func (g *Generator) OutDir() string {
	return g.outDir
}

// Path returns the location of an artifact in the output directory.
func (g *Generator) Path(name string) string {
	return filepath.Join(g.outDir, name)
}

// CreateUbootEnv compiles the U-Boot environment into uboot_env.img and
// signs it with a hash footer.
func (g *Generator) CreateUbootEnv(ctx context.Context) error {
	input := g.Path(UbootEnvInput)
	output := g.Path(UbootEnvImage)

	if err := os.WriteFile(input, []byte(ubootEnv), 0644); err != nil {
		return fmt.Errorf("write %s: %w", UbootEnvInput, err)
	}

	if _, err := g.runner.Run(ctx, paths.Tool(paths.MkenvimageSlim),
		"-output_path", output,
		"-input_path", input,
	); err != nil {
		return fmt.Errorf("build environment image: %w", err)
	}

	if err := g.addHashFooter(ctx, output, "uboot_env"); err != nil {
		return err
	}

	g.logArtifact(ctx, UbootEnvImage)
	return nil
}

// CreateVBMeta writes vbmeta.img chaining to uboot_env and bootconfig, then
// pads it past the next VBMetaBoundary.
func (g *Generator) CreateVBMeta(ctx context.Context) error {
	output := g.Path(VBMetaImage)
	pubkey := g.paths.PublicKey()

	args := []string{"make_vbmeta_image", "--output", output}
	for _, c := range vbmetaChain {
		args = append(args, "--chain_partition", c.partition+":"+strconv.Itoa(c.index)+":"+pubkey)
	}
	args = append(args, "--key", g.paths.TestKey(), "--algorithm", Algorithm)

	if _, err := g.runner.Run(ctx, paths.Tool(paths.Avbtool), args...); err != nil {
		return fmt.Errorf("make vbmeta image: %w", err)
	}

	pad, err := PadToBoundary(output, VBMetaBoundary)
	if err != nil {
		return fmt.Errorf("pad %s: %w", VBMetaImage, err)
	}
	g.logger.DebugContext(ctx, "padded vbmeta", "path", output, "pad", pad)

	g.logArtifact(ctx, VBMetaImage)
	return nil
}

// CreateBootconfig writes the bootconfig for arch and rendering mode and
// signs it with a hash footer. An existing bootconfig is replaced.
func (g *Generator) CreateBootconfig(ctx context.Context, arch Arch, virgl bool) error {
	data, err := Bootconfig(arch, virgl)
	if err != nil {
		return err
	}

	output := g.Path(BootconfigImage)
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", BootconfigImage, err)
	}

	if err := g.addHashFooter(ctx, output, "bootconfig"); err != nil {
		return err
	}

	g.logArtifact(ctx, BootconfigImage, "arch", arch, "virgl", virgl)
	return nil
}

// addHashFooter signs image in place, growing it to HashFooterPartitionSize.
func (g *Generator) addHashFooter(ctx context.Context, image, partition string) error {
	_, err := g.runner.Run(ctx, paths.Tool(paths.Avbtool),
		"add_hash_footer",
		"--image", image,
		"--partition_size", strconv.Itoa(HashFooterPartitionSize),
		"--partition_name", partition,
		"--key", g.paths.TestKey(),
		"--algorithm", Algorithm,
	)
	if err != nil {
		return fmt.Errorf("add hash footer to %s: %w", partition, err)
	}
	return nil
}

func (g *Generator) logArtifact(ctx context.Context, name string, attrs ...any) {
	attrs = append([]any{"image", name, "path", g.Path(name)}, attrs...)
	if info, err := os.Stat(g.Path(name)); err == nil {
		attrs = append(attrs, "size", info.Size())
	}
	g.logger.InfoContext(ctx, "created artifact", attrs...)
}

// PadToBoundary appends zeros to the file at path so its length becomes the
// smallest multiple of boundary strictly greater than its current length.
// A file already on a boundary grows by a full boundary. It returns the
// number of bytes appended.
func PadToBoundary(path string, boundary int64) (int64, error) {
	if boundary <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBoundary, boundary)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	pad := boundary - info.Size()%boundary
	if _, err := f.Write(make([]byte, pad)); err != nil {
		return 0, err
	}
	return pad, f.Close()
}
