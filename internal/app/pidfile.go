package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFilePath returns <data-dir>/tina/daemon.lock, the sibling advisory
// lock file that guards against two daemons racing to start before either
// has written the PID file.
func LockFilePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "daemon.lock"), nil
}

// AcquireLockFile takes an exclusive, non-blocking advisory flock on path.
// The returned file must be kept open for the lifetime of the process and
// released with ReleaseLockFile.
func AcquireLockFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create lock file directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("daemon already starting or running (lock held on %s)", path)
	}
	return f, nil
}

// ReleaseLockFile unlocks and closes the lock file. Nil-safe.
func ReleaseLockFile(f *os.File) {
	if f == nil {
		return
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	_ = f.Close()
}

// PIDFilePath returns <data-dir>/tina/daemon.pid.
func PIDFilePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "daemon.pid"), nil
}

// AcquirePIDFile refuses to start if a live process already holds the PID
// file, detecting staleness with a signal-0 probe, then writes the current
// process's PID.
func AcquirePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create pid file directory: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && pid > 0 {
			if processAlive(pid) {
				return fmt.Errorf("daemon already running with pid %d (%s)", pid, path)
			}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read pid file %s: %w", path, err)
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// ReleasePIDFile removes the PID file if it still names this process.
func ReleasePIDFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && pid != os.Getpid() {
		return nil
	}
	return os.Remove(path)
}

// processAlive reports whether pid names a live process, using the
// conventional signal-0 liveness probe (no signal is actually delivered).
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
