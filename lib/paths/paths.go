// Package paths provides centralized path construction for a Cuttlefish
// component directory.
//
// Directory Structure:
//
//	{componentDir}/
//	  boot.img, init_boot.img, vendor_boot.img, vbmeta*.img
//	  super.img, userdata.img
//	  bin/
//	    simg2img
//	    mkenvimage_slim
//	    avbtool
//	  etc/
//	    cvd_avb_testkey.pem
//	    cvd.avbpubkey
package paths

import (
	"fmt"
	"path/filepath"
)

// External tools shipped in the component directory's bin/.
const (
	Simg2img       = "simg2img"
	MkenvimageSlim = "mkenvimage_slim"
	Avbtool        = "avbtool"
)

// Paths provides typed path construction for a component directory.
type Paths struct {
	componentDir string
}

// New creates a new Paths instance for the given component directory.
func New(componentDir string) *Paths {
	return &Paths{componentDir: componentDir}
}

// ComponentDir returns the component directory as given.
func (p *Paths) ComponentDir() string {
	return p.componentDir
}

// Image returns the path to a component image.
func (p *Paths) Image(name string) string {
	return filepath.Join(p.componentDir, name)
}

// Tool returns the path of a tool relative to the component directory.
func Tool(name string) string {
	return filepath.Join("bin", name)
}

// ToolPath returns the path to a tool binary inside the component directory.
func (p *Paths) ToolPath(name string) string {
	return filepath.Join(p.componentDir, Tool(name))
}

// TestKey returns the path to the AVB test signing key.
func (p *Paths) TestKey() string {
	return filepath.Join(p.componentDir, "etc", "cvd_avb_testkey.pem")
}

// PublicKey returns the path to the AVB public key used for chained partitions.
func (p *Paths) PublicKey() string {
	return filepath.Join(p.componentDir, "etc", "cvd.avbpubkey")
}

// Canonical resolves dir to an absolute path with symlinks evaluated.
func Canonical(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("absolute path %s: %w", dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", abs, err)
	}
	return resolved, nil
}
