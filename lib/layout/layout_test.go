package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/onkernel/cvd2img/lib/disk"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	l, err := Default()
	require.NoError(t, err)

	require.Len(t, l.System, 18)
	require.Len(t, l.Properties, 4)

	specs := Specs(l.System)
	assert.Equal(t, disk.ComponentSpec{Source: disk.BlankSource(1048576), PartitionName: "misc"}, specs[0])
	assert.Equal(t, disk.ComponentSpec{Source: disk.FileSource("boot.img"), PartitionName: "boot_a"}, specs[1])
	assert.Equal(t, disk.ComponentSpec{Source: disk.BlankSource(67108864), PartitionName: "metadata"}, specs[17])

	assert.Equal(t, []string{
		"misc",
		"boot_a", "boot_b",
		"init_boot_a", "init_boot_b",
		"vendor_boot_a", "vendor_boot_b",
		"vbmeta_a", "vbmeta_b",
		"vbmeta_system_a", "vbmeta_system_b",
		"vbmeta_vendor_dlkm_a", "vbmeta_vendor_dlkm_b",
		"vbmeta_system_dlkm_a", "vbmeta_system_dlkm_b",
		"super", "userdata", "metadata",
	}, lo.Map(l.System, func(e Entry, _ int) string { return e.Partition }))

	assert.Equal(t, []disk.ComponentSpec{
		{Source: disk.FileSource("uboot_env.img"), PartitionName: "uboot_env"},
		{Source: disk.FileSource("vbmeta.img"), PartitionName: "vbmeta"},
		{Source: disk.BlankSource(1048576), PartitionName: "frp"},
		{Source: disk.FileSource("bootconfig"), PartitionName: "bootconfig"},
	}, Specs(l.Properties))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "empty system",
			yaml: "properties:\n  - partition: frp\n    blank: 1MB\n",
		},
		{
			name: "missing partition name",
			yaml: "system:\n  - image: boot.img\nproperties:\n  - partition: frp\n    blank: 1MB\n",
		},
		{
			name: "both sources",
			yaml: "system:\n  - partition: boot_a\n    image: boot.img\n    blank: 1MB\nproperties:\n  - partition: frp\n    blank: 1MB\n",
		},
		{
			name: "no source",
			yaml: "system:\n  - partition: boot_a\nproperties:\n  - partition: frp\n    blank: 1MB\n",
		},
		{
			name: "zero blank",
			yaml: "system:\n  - partition: misc\n    blank: 0B\nproperties:\n  - partition: frp\n    blank: 1MB\n",
		},
		{
			name: "duplicate partition",
			yaml: "system:\n  - partition: boot\n    image: a.img\n  - partition: boot\n    image: b.img\nproperties:\n  - partition: frp\n    blank: 1MB\n",
		},
		{
			name: "bad size",
			yaml: "system:\n  - partition: misc\n    blank: lots\nproperties:\n  - partition: frp\n    blank: 1MB\n",
		},
		{
			name: "not yaml",
			yaml: "system: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestParse_BlankUnits(t *testing.T) {
	l, err := Parse([]byte(`
system:
  - partition: a
    blank: 512B
  - partition: b
    blank: 4KB
  - partition: c
    blank: "4096"
properties:
  - partition: frp
    blank: 1MB
`))
	require.NoError(t, err)

	specs := Specs(l.System)
	assert.Equal(t, uint64(512), specs[0].Source.Blank)
	assert.Equal(t, uint64(4096), specs[1].Source.Blank)
	assert.Equal(t, uint64(4096), specs[2].Source.Blank)
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		l, err := Load("")
		require.NoError(t, err)
		assert.Len(t, l.System, 18)
	})

	t.Run("custom file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "layout.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
system:
  - partition: boot_a
    image: boot.img
properties:
  - partition: bootconfig
    image: bootconfig
`), 0644))

		l, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []disk.ComponentSpec{{Source: disk.FileSource("boot.img"), PartitionName: "boot_a"}}, Specs(l.System))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid file names path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("system: []\n"), 0644))

		_, err := Load(path)
		require.ErrorIs(t, err, ErrInvalidLayout)
		assert.Contains(t, err.Error(), path)
	})
}
