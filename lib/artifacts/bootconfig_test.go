package artifacts

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootconfig_Layout(t *testing.T) {
	data, err := Bootconfig(ArchAarch64, false)
	require.NoError(t, err)

	s := string(data)
	require.True(t, strings.HasSuffix(s, "\n"))

	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	require.Len(t, lines, 27)
	assert.Equal(t, "androidboot.hypervisor.protected_vm.supported=0", lines[0])
	assert.Equal(t, "androidboot.serialconsole=0", lines[24])
	assert.Equal(t, "androidboot.boot_devices=4010000000.pcie", lines[25])
	assert.Equal(t, "androidboot.hardware.egl=angle", lines[26])
}

func TestBootconfig_Virgl(t *testing.T) {
	data, err := Bootconfig(ArchX86_64, true)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 29)
	assert.Equal(t, []string{
		"androidboot.boot_devices=pci0000:00/0000:00:0f.0,pci0000:00/0000:00:10.0",
		"androidboot.hardware.egl=mesa",
		"androidboot.hardware.hwcomposer.display_finder_mode=drm",
		"androidboot.hardware.hwcomposer.mode=client",
	}, lines[25:])
}

func TestBootconfig_SharedBase(t *testing.T) {
	sw, err := Bootconfig(ArchX86_64, false)
	require.NoError(t, err)
	virgl, err := Bootconfig(ArchAarch64, true)
	require.NoError(t, err)

	base := strings.Join(baseBootconfig, "\n") + "\n"
	assert.True(t, strings.HasPrefix(string(sw), base))
	assert.True(t, strings.HasPrefix(string(virgl), base))
}

func TestParseArch(t *testing.T) {
	tests := []struct {
		in       string
		expected Arch
		wantErr  bool
	}{
		{"x86_64", ArchX86_64, false},
		{"amd64", ArchX86_64, false},
		{"aarch64", ArchAarch64, false},
		{"arm64", ArchAarch64, false},
		{" AARCH64 ", ArchAarch64, false},
		{"riscv64", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseArch(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedArch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestHostArch(t *testing.T) {
	if runtime.GOARCH == "arm64" {
		assert.Equal(t, ArchAarch64, HostArch())
	} else {
		assert.Equal(t, ArchX86_64, HostArch())
	}
}
