// Package daemon manages the background-process lifecycle: a PID file
// under ~/.brios, detached start of the monitor, stop with a bounded
// wait and liveness checks with stale-PID cleanup.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	dirName     = ".brios"
	pidFileName = "monitor.pid"
	logFileName = "monitor.log"

	stopWait = 10 * time.Second
)

// ErrNotRunning is returned by Stop and Running when no live daemon is
// recorded in the PID file.
var ErrNotRunning = errors.New("daemon not running")

// Dir returns the state directory, creating it on first use.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func PIDFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, pidFileName), nil
}

func LogFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFileName), nil
}

// Start launches the current binary as a detached monitor process and
// records its PID. Refuses to start when a live daemon already exists.
func Start(extraArgs []string) (int, error) {
	if pid, err := Running(); err == nil {
		return 0, fmt.Errorf("daemon already running (pid %d)", pid)
	}

	self, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}
	logPath, err := LogFile()
	if err != nil {
		return 0, err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()

	args := append([]string{"monitor", "--daemon"}, extraArgs...)
	cmd := exec.Command(self, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	if err := writePID(pid); err != nil {
		_ = cmd.Process.Kill()
		return 0, err
	}
	// Detach: the child keeps running after we exit.
	_ = cmd.Process.Release()
	return pid, nil
}

// Stop signals the recorded daemon to terminate and waits for it to go
// away, escalating to SIGKILL after the grace window.
func Stop() error {
	pid, err := Running()
	if err != nil {
		return err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return removePIDFile()
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return removePIDFile()
	}

	deadline := time.Now().Add(stopWait)
	for time.Now().Before(deadline) {
		if !alive(pid) {
			return removePIDFile()
		}
		time.Sleep(200 * time.Millisecond)
	}
	_ = proc.Kill()
	return removePIDFile()
}

// Running returns the live daemon's PID. A PID file pointing at a dead
// process is stale and gets cleaned up here.
func Running() (int, error) {
	path, err := PIDFile()
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, ErrNotRunning
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		_ = os.Remove(path)
		return 0, ErrNotRunning
	}
	if !alive(pid) {
		_ = os.Remove(path)
		return 0, ErrNotRunning
	}
	return pid, nil
}

// WriteOwnPID records the current process, used when the daemon child
// starts up and wants the PID file to point at itself.
func WriteOwnPID() error {
	return writePID(os.Getpid())
}

func RemovePIDFile() error {
	return removePIDFile()
}

func writePID(pid int) error {
	path, err := PIDFile()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

func removePIDFile() error {
	path, err := PIDFile()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
