package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	p := New("/cvd")

	assert.Equal(t, "/cvd", p.ComponentDir())
	assert.Equal(t, "/cvd/super.img", p.Image("super.img"))
	assert.Equal(t, "bin/avbtool", Tool(Avbtool))
	assert.Equal(t, "/cvd/bin/simg2img", p.ToolPath(Simg2img))
	assert.Equal(t, "/cvd/etc/cvd_avb_testkey.pem", p.TestKey())
	assert.Equal(t, "/cvd/etc/cvd.avbpubkey", p.PublicKey())
}

func TestCanonical(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(real, 0755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(real, link))

	resolvedReal, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)

	got, err := Canonical(link)
	require.NoError(t, err)
	assert.Equal(t, resolvedReal, got)

	_, err = Canonical(filepath.Join(dir, "missing"))
	require.Error(t, err)
}
