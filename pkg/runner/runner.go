// Package runner executes the prebuilt quad tester against a compiled
// program's listing and post-processes its output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Tester binary names per host platform, expected next to the listing.
const (
	testerLinux   = "tester_Linux.out"
	testerMac     = "tester_Mac.out"
	testerWindows = "tester_Windows.exe"
)

const (
	// DefaultTimeout kills programs that never terminate.
	DefaultTimeout = 10 * time.Second
	// addrSpaceKB caps the tester's address space on Linux (50 MB).
	addrSpaceKB = 50 * 1024
)

// Options configures one tester run.
type Options struct {
	Dir     string        // directory holding the listing and the tester binary
	Verbose bool          // keep the full output instead of just PRINT lines
	Timeout time.Duration // zero means DefaultTimeout
	Tester  string        // override the platform tester binary name
}

// TesterName returns the tester binary for the current platform.
func TesterName() string {
	switch runtime.GOOS {
	case "darwin":
		return testerMac
	case "windows":
		return testerWindows
	default:
		return testerLinux
	}
}

// Run executes the tester in opts.Dir and returns its processed output.
// A timeout is reported as an error with whatever output was produced.
func Run(ctx context.Context, opts Options) (string, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := opts.Tester
	if name == "" {
		name = TesterName()
	}
	bin, err := filepath.Abs(filepath.Join(opts.Dir, name))
	if err != nil {
		return "", err
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "linux" {
		// ulimit applies to the shell's children, capping the tester's
		// address space without affecting this process.
		cmd = exec.CommandContext(ctx, "sh", "-c",
			fmt.Sprintf("ulimit -v %d; exec %q", addrSpaceKB, bin))
	} else {
		cmd = exec.CommandContext(ctx, bin)
	}
	cmd.Dir = opts.Dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err = cmd.Run()
	out := buf.String()
	if !opts.Verbose {
		out = FilterPrints(out)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("program timed out after %s", timeout)
	}
	if err != nil {
		return out, fmt.Errorf("tester failed: %w", err)
	}
	return out, nil
}

// FilterPrints keeps only the program's own output: lines carrying the PRINT
// marker, with the marker stripped.
func FilterPrints(out string) string {
	var sb strings.Builder
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "PRINT "); ok {
			sb.WriteString(rest)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
