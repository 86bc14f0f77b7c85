// Package lock keeps two live habitvault processes from restoring into the same database.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
)

var (
	ErrLocked = errors.New("database is in use by another habitvault process")

	// For testing
	findProcessFunc = ps.FindProcess
	getpid          = os.Getpid
)

// Lock is a held lockfile. The file holds "pid|executable".
type Lock struct {
	path string
	pid  int
}

// Acquire takes the lockfile in dir. A lockfile left by a process that no longer
// runs, or whose pid now belongs to another program, is taken over.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(dir, constants.InstanceLockfileName)

	if holder, ok := liveHolder(path); ok {
		return nil, fmt.Errorf("%w (pid %d)", ErrLocked, holder)
	}

	pid := getpid()
	exe := constants.AppName
	if p, err := findProcessFunc(pid); err == nil && p != nil {
		exe = p.Executable()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(fmt.Sprintf("%d|%s", pid, exe)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	return &Lock{path: path, pid: pid}, nil
}

// liveHolder reports the pid of another running habitvault process named in path.
func liveHolder(path string) (int, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	parts := strings.SplitN(strings.TrimSpace(string(content)), "|", 2)
	pid, err := strconv.Atoi(parts[0])
	if err != nil {
		logger.Warn("Ignoring malformed lockfile", "path", path)
		return 0, false
	}
	if pid == getpid() {
		return 0, false
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		logger.Debug("Taking over stale lockfile", "path", path, "pid", pid)
		return 0, false
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		logger.Debug("Lockfile pid belongs to another program", "pid", pid, "executable", process.Executable())
		return 0, false
	}
	return pid, true
}

// Release removes the lockfile if this process still owns it.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	content, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !strings.HasPrefix(string(content), strconv.Itoa(l.pid)+"|") {
		return nil
	}
	return os.Remove(l.path)
}
