package sparse

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/onkernel/cvd2img/lib/paths"
	"github.com/onkernel/cvd2img/lib/toolrunner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sparseHeader = []byte{0x3A, 0xFF, 0x26, 0xED}

// fakeSimg2img records calls and writes expanded output to the destination
type fakeSimg2img struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeSimg2img) Run(ctx context.Context, tool string, args ...string) (*toolrunner.Outcome, error) {
	f.calls = append(f.calls, append([]string{tool}, args...))
	if f.err != nil {
		// simulate a tool that died after partially writing its output
		os.WriteFile(args[1], []byte("partial"), 0644)
		return &toolrunner.Outcome{ExitCode: 1}, f.err
	}
	if err := os.WriteFile(args[1], f.output, 0644); err != nil {
		return nil, err
	}
	return &toolrunner.Outcome{}, nil
}

func TestIsSparse(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		content  []byte
		expected bool
		wantErr  bool
	}{
		{"sparse magic", append(sparseHeader, 0x01, 0x00), true, false},
		{"raw ext4", bytes.Repeat([]byte{0}, 4096), false, false},
		{"reversed magic", []byte{0xED, 0x26, 0xFF, 0x3A}, false, false},
		{"exactly magic", sparseHeader, true, false},
		{"too short", []byte{0x3A, 0xFF}, false, true},
		{"empty", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, tt.content, 0644))

			got, err := IsSparse(path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := IsSparse(filepath.Join(dir, "missing.img"))
	require.Error(t, err)
}

func TestNormalize_RawIsNoop(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte{0xAB}, 8192)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "super.img"), content, 0644))

	runner := &fakeSimg2img{}
	n := NewNormalizer(paths.New(dir), runner, nil)

	// twice: normalizing a raw image is idempotent
	require.NoError(t, n.Normalize(context.Background(), "super.img"))
	require.NoError(t, n.Normalize(context.Background(), "super.img"))

	got, err := os.ReadFile(filepath.Join(dir, "super.img"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Empty(t, runner.calls)
}

func TestNormalize_SparseIsReplaced(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "userdata.img")
	require.NoError(t, os.WriteFile(src, append(sparseHeader, 0x00, 0x00), 0644))

	expanded := bytes.Repeat([]byte{0x11}, 4096)
	runner := &fakeSimg2img{output: expanded}
	n := NewNormalizer(paths.New(dir), runner, nil)

	require.NoError(t, n.Normalize(context.Background(), "userdata.img"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"bin/simg2img", src, filepath.Join(dir, "userdata.tmp")}, runner.calls[0])

	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, expanded, got)

	_, err = os.Stat(filepath.Join(dir, "userdata.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestNormalize_ToolFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "super.img")
	original := append(sparseHeader, 0x00, 0x00)
	require.NoError(t, os.WriteFile(src, original, 0644))

	runner := &fakeSimg2img{err: &toolrunner.ToolError{Tool: "simg2img", ExitCode: 2}}
	n := NewNormalizer(paths.New(dir), runner, nil)

	err := n.Normalize(context.Background(), "super.img")
	require.Error(t, err)
	assert.ErrorIs(t, err, toolrunner.ErrToolFailed)

	// original untouched, temp sibling removed
	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, original, got)
	_, err = os.Stat(filepath.Join(dir, "super.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestNormalizeAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "super.img"), append(sparseHeader, 0x00), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "userdata.img"), []byte("raw userdata"), 0644))

	runner := &fakeSimg2img{output: []byte("expanded super")}
	n := NewNormalizer(paths.New(dir), runner, nil)

	require.NoError(t, n.NormalizeAll(context.Background()))
	require.Len(t, runner.calls, 1)

	got, err := os.ReadFile(filepath.Join(dir, "super.img"))
	require.NoError(t, err)
	assert.Equal(t, "expanded super", string(got))
}

func TestNormalizeAll_MissingImage(t *testing.T) {
	dir := t.TempDir()
	n := NewNormalizer(paths.New(dir), &fakeSimg2img{}, nil)

	err := n.NormalizeAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
