package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/onkernel/cvd2img/lib/artifacts"
)

type Config struct {
	ComponentDir         string
	SystemImage          string
	PropertiesImage      string
	VirglPropertiesImage string
	Arch                 string
	LayoutFile           string
	LogLevel             string
	OtelEndpoint         string
	OtelServiceName      string
}

// Load loads configuration from environment variables, then applies
// command-line flags on top. The first positional argument is the
// component directory.
// Automatically loads .env file if present
func Load(args []string) (*Config, error) {
	return load(args, os.Stderr)
}

func load(args []string, output io.Writer) (*Config, error) {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		ComponentDir:         getEnv("CVD_DIR", ""),
		SystemImage:          getEnv("SYSTEM_IMAGE", "system.img"),
		PropertiesImage:      getEnv("PROPS_IMAGE", "properties.img"),
		VirglPropertiesImage: getEnv("VIRGL_PROPS_IMAGE", "properties_virgl.img"),
		Arch:                 getEnv("ARCH", artifacts.HostArch().String()),
		LayoutFile:           getEnv("LAYOUT_FILE", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		OtelEndpoint:         getEnv("OTEL_ENDPOINT", ""),
		OtelServiceName:      getEnv("OTEL_SERVICE_NAME", "cvd2img"),
	}

	fs := flag.NewFlagSet("cvd2img", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: cvd2img [flags] <cvd-dir>\n\n")
		fmt.Fprintf(fs.Output(), "Builds system and properties disk images from an Android Cuttlefish image directory.\n\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.Arch, "arch", cfg.Arch, "architecture of the source images (x86_64, aarch64)")
	fs.StringVar(&cfg.SystemImage, "system", cfg.SystemImage, "output file for the system disk image")
	fs.StringVar(&cfg.PropertiesImage, "props", cfg.PropertiesImage, "output file for the properties disk image")
	fs.StringVar(&cfg.VirglPropertiesImage, "virgl-props", cfg.VirglPropertiesImage, "output file for the virgl variant of the properties disk image")
	fs.StringVar(&cfg.LayoutFile, "layout", cfg.LayoutFile, "YAML file replacing the built-in partition layouts")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.ComponentDir = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected one component directory, got %d arguments", fs.NArg())
	}

	return cfg, nil
}

// Validate reports configuration that cannot drive a build.
func (c *Config) Validate() error {
	var errs []error

	if c.ComponentDir == "" {
		errs = append(errs, errors.New("component directory is required (argument or CVD_DIR)"))
	} else if info, err := os.Stat(c.ComponentDir); err != nil {
		errs = append(errs, fmt.Errorf("component directory: %w", err))
	} else if !info.IsDir() {
		errs = append(errs, fmt.Errorf("component directory %s is not a directory", c.ComponentDir))
	}

	if _, err := artifacts.ParseArch(c.Arch); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
