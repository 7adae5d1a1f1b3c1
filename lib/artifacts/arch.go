package artifacts

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch is the CPU architecture of the component images.
type Arch string

const (
	ArchX86_64  Arch = "x86_64"
	ArchAarch64 Arch = "aarch64"
)

// ParseArch parses an architecture name. Go's amd64 and arm64 are accepted
// as aliases.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x86_64", "amd64":
		return ArchX86_64, nil
	case "aarch64", "arm64":
		return ArchAarch64, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedArch, s)
	}
}

// HostArch returns the architecture matching the running binary.
// Anything other than arm64 maps to x86_64.
func HostArch() Arch {
	if runtime.GOARCH == "arm64" {
		return ArchAarch64
	}
	return ArchX86_64
}

func (a Arch) String() string {
	return string(a)
}
