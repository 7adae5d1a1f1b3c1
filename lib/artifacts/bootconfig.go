package artifacts

import (
	"bytes"
	"fmt"
)

// baseBootconfig is shared by every architecture and rendering mode.
var baseBootconfig = []string{
	"androidboot.hypervisor.protected_vm.supported=0",
	"androidboot.modem_simulator_ports=9600",
	"androidboot.lcd_density=320",
	"androidboot.vendor.audiocontrol.server.port=9410",
	"androidboot.vendor.audiocontrol.server.cid=3",
	"androidboot.cuttlefish_config_server_port=6800",
	"androidboot.vendor.vehiclehal.server.port=9300",
	"androidboot.fstab_suffix=cf.f2fs.hctr2",
	"androidboot.enable_confirmationui=0",
	"androidboot.hypervisor.vm.supported=0",
	"androidboot.serialno=CUTTLEFISHCVD011",
	"androidboot.setupwizard_mode=DISABLED",
	"androidboot.cpuvulkan.version=4202496",
	"androidboot.ddr_size=4915MB",
	"androidboot.hardware.angle_feature_overrides_enabled=preferLinearFilterForYUV:mapUnspecifiedColorSpaceToPassThrough",
	"androidboot.enable_bootanimation=1",
	"androidboot.hardware.gralloc=minigbm",
	"androidboot.vendor.vehiclehal.server.cid=2",
	"androidboot.hypervisor.version=cf-qemu_cli",
	"androidboot.hardware.vulkan=pastel",
	"androidboot.opengles.version=196609",
	"androidboot.wifi_mac_prefix=5554",
	"androidboot.vsock_tombstone_port=6600",
	"androidboot.hardware.hwcomposer=ranchu",
	"androidboot.serialconsole=0",
}

var bootDevices = map[Arch][]string{
	ArchX86_64:  {"androidboot.boot_devices=pci0000:00/0000:00:0f.0,pci0000:00/0000:00:10.0"},
	ArchAarch64: {"androidboot.boot_devices=4010000000.pcie"},
}

var (
	softwareRendering = []string{
		"androidboot.hardware.egl=angle",
	}
	virglRendering = []string{
		"androidboot.hardware.egl=mesa",
		"androidboot.hardware.hwcomposer.display_finder_mode=drm",
		"androidboot.hardware.hwcomposer.mode=client",
	}
)

// Bootconfig renders the boot configuration for arch: the base block, the
// boot device line, then the rendering block. Every line ends in a newline.
func Bootconfig(arch Arch, virgl bool) ([]byte, error) {
	devices, ok := bootDevices[arch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedArch, arch)
	}

	rendering := softwareRendering
	if virgl {
		rendering = virglRendering
	}

	var buf bytes.Buffer
	for _, block := range [][]string{baseBootconfig, devices, rendering} {
		for _, line := range block {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}
