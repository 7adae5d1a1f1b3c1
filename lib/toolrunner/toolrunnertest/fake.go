// Package toolrunnertest provides an in-process stand-in for the component
// directory's tools.
package toolrunnertest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/onkernel/cvd2img/lib/toolrunner"
)

// Default sizes of the files the fake tools produce.
const (
	EnvImageSize      = 4096
	DefaultVBMetaSize = 1024
)

// Fake emulates simg2img, mkenvimage_slim and avbtool closely enough for
// the files they produce to be laid out and partitioned.
type Fake struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]error

	// VBMetaSize overrides the size of make_vbmeta_image output when non-zero.
	VBMetaSize int
}

// New creates a new Fake
func New() *Fake {
	return &Fake{fail: make(map[string]error)}
}

// Fail makes invocations matching key return err. A key is a tool name
// ("avbtool") or a tool name and its first argument ("avbtool make_vbmeta_image").
func (f *Fake) Fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

// Calls returns every invocation as the tool followed by its arguments.
func (f *Fake) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// Run implements toolrunner.Runner.
func (f *Fake) Run(ctx context.Context, tool string, args ...string) (*toolrunner.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := filepath.Base(tool)

	f.mu.Lock()
	f.calls = append(f.calls, append([]string{tool}, args...))
	err, ok := f.fail[name]
	if !ok && len(args) > 0 {
		err, ok = f.fail[name+" "+args[0]]
	}
	f.mu.Unlock()

	if ok {
		return &toolrunner.Outcome{ExitCode: 1}, err
	}

	switch name {
	case "simg2img":
		err = simg2img(args)
	case "mkenvimage_slim":
		err = mkenvimage(args)
	case "avbtool":
		err = f.avbtool(args)
	default:
		err = fmt.Errorf("%w: %s", toolrunner.ErrToolNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &toolrunner.Outcome{}, nil
}

// simg2img writes the source with its magic cleared to the destination
func simg2img(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("simg2img: want 2 args, got %d", len(args))
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	copy(data, make([]byte, 4))
	return os.WriteFile(args[1], data, 0644)
}

// mkenvimage writes the input padded to EnvImageSize
func mkenvimage(args []string) error {
	input, output := flagValue(args, "-input_path"), flagValue(args, "-output_path")
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	if len(data) > EnvImageSize {
		return fmt.Errorf("mkenvimage_slim: input exceeds %d bytes", EnvImageSize)
	}
	return os.WriteFile(output, append(data, make([]byte, EnvImageSize-len(data))...), 0644)
}

func (f *Fake) avbtool(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("avbtool: missing command")
	}

	switch args[0] {
	case "add_hash_footer":
		image := flagValue(args, "--image")
		size, err := strconv.ParseInt(flagValue(args, "--partition_size"), 10, 64)
		if err != nil {
			return fmt.Errorf("avbtool: partition size: %w", err)
		}
		info, err := os.Stat(image)
		if err != nil {
			return err
		}
		if info.Size() > size {
			return fmt.Errorf("avbtool: %s is larger than partition size %d", image, size)
		}
		return os.Truncate(image, size)
	case "make_vbmeta_image":
		size := f.VBMetaSize
		if size == 0 {
			size = DefaultVBMetaSize
		}
		return os.WriteFile(flagValue(args, "--output"), make([]byte, size), 0644)
	default:
		return fmt.Errorf("avbtool: unknown command %s", args[0])
	}
}

// flagValue returns the argument following name, or "" when absent
func flagValue(args []string, name string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}
