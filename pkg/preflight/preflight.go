package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/utils"
)

// Logger receives manual-intervention entries
type Logger interface {
	Error(message string)
}

// Env is the process environment the preconditions are checked against.
// Nil fields fall back to the real process.
type Env struct {
	LookPath func(file string) (string, error)
	Geteuid  func() int
	Getenv   func(key string) string
}

// Checker runs the startup preconditions
type Checker struct {
	log Logger

	lookPath func(file string) (string, error)
	geteuid  func() int
	getenv   func(key string) string
}

// New creates a Checker
func New(log Logger, env Env) *Checker {
	c := &Checker{
		log:      log,
		lookPath: env.LookPath,
		geteuid:  env.Geteuid,
		getenv:   env.Getenv,
	}
	if c.lookPath == nil {
		c.lookPath = exec.LookPath
	}
	if c.geteuid == nil {
		c.geteuid = unix.Geteuid
	}
	if c.getenv == nil {
		c.getenv = os.Getenv
	}
	return c
}

// CheckCommands resolves every name on PATH. All missing commands are
// reported, not just the first one.
func (c *Checker) CheckCommands(names []string) error {
	var missing []string
	for _, name := range names {
		path, err := c.lookPath(name)
		if err != nil {
			klog.V(4).Infof("Command %s not resolvable: %v", name, err)
			missing = append(missing, name)
			continue
		}
		klog.V(4).Infof("Command %s resolved to %s", name, path)
	}

	if len(missing) == 0 {
		klog.V(2).Infof("All %d required commands present", len(names))
		return nil
	}

	for _, name := range missing {
		c.log.Error(fmt.Sprintf("Required command '%s' not found or not executable.", name))
	}
	c.log.Error(fmt.Sprintf("Current PATH: %s", c.getenv("PATH")))
	c.log.Error("One or more required commands are missing. Please install them or ensure they are in your PATH.")
	return fmt.Errorf("%w: %s", utils.ErrMissingCommands, strings.Join(missing, ", "))
}

// CheckPrivilege requires an effective uid of 0
func (c *Checker) CheckPrivilege() error {
	euid := c.geteuid()
	if euid != 0 {
		c.log.Error("This program must be run as root. Please use sudo.")
		return fmt.Errorf("%w: effective uid %d", utils.ErrNotPrivileged, euid)
	}
	klog.V(2).Info("Running with root privileges")
	return nil
}
