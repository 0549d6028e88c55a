package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/tracker"
	"git.srvlab.io/whiskey/diskcheck/pkg/utils"
)

// DefaultPath is read when no --config flag is given; a missing file is not an error
const DefaultPath = "/etc/diskcheck/config.yaml"

// Keys
const (
	KeyLogDir           = "log_dir"
	KeyDiskutilPath     = "diskutil_path"
	KeyRequiredCommands = "required_commands"
	KeyMetricsTextfile  = "metrics_textfile"
	KeyStateFile        = "state_file"
)

var defaults = []byte(`
log_dir: /var/log/disk_checks
diskutil_path: /usr/sbin/diskutil
required_commands:
  - diskutil
metrics_textfile: ""
state_file: ""
`)

// Config is the effective configuration of one run
type Config struct {
	// LogDir receives both audit logs and, by default, the state file
	LogDir string `koanf:"log_dir"`

	// DiskutilPath is the host disk tool binary
	DiskutilPath string `koanf:"diskutil_path"`

	// RequiredCommands must all resolve on PATH before the run starts
	RequiredCommands []string `koanf:"required_commands"`

	// MetricsTextfile is a node_exporter textfile target; empty disables metrics output
	MetricsTextfile string `koanf:"metrics_textfile"`

	// StateFile persists volumes awaiting remount; empty means LogDir/diskcheck-state.json
	StateFile string `koanf:"state_file"`
}

// Options selects the file layer and the override layer
type Options struct {
	// Path is the YAML file to read. Empty means DefaultPath.
	Path string

	// Explicit is set when Path came from the user, making a missing file an error
	Explicit bool

	// Overrides are applied last, keyed by the Key constants
	Overrides map[string]interface{}
}

// Load builds the effective configuration
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: defaults: %v", utils.ErrInvalidConfig, err)
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || opts.Explicit {
			return nil, fmt.Errorf("%w: %s: %v", utils.ErrInvalidConfig, path, err)
		}
		klog.V(4).Infof("No config file at %s, using defaults", path)
	} else {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", utils.ErrInvalidConfig, path, err)
		}
		klog.V(4).Infof("Loaded config file %s", path)
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("%w: override %s: %v", utils.ErrInvalidConfig, key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	klog.V(2).Infof("Effective config: log_dir=%s diskutil_path=%s required_commands=%v metrics_textfile=%q state_file=%s",
		cfg.LogDir, cfg.DiskutilPath, cfg.RequiredCommands, cfg.MetricsTextfile, cfg.StatePath())
	return cfg, nil
}

// Validate checks settings that would otherwise fail late in the run
func (c *Config) Validate() error {
	if c.LogDir == "" {
		return fmt.Errorf("%w: %s must not be empty", utils.ErrInvalidConfig, KeyLogDir)
	}
	if c.DiskutilPath == "" {
		return fmt.Errorf("%w: %s must not be empty", utils.ErrInvalidConfig, KeyDiskutilPath)
	}
	for _, name := range c.RequiredCommands {
		if err := utils.ValidateCommandName(name); err != nil {
			return err
		}
	}
	return nil
}

// StatePath returns the state file location
func (c *Config) StatePath() string {
	if c.StateFile != "" {
		return c.StateFile
	}
	return filepath.Join(c.LogDir, tracker.StateFileName)
}
