// Package xtool invokes the external helper binaries the core engines
// treat as black boxes: out-of-process QBF solvers and the AIG
// optimizer. Every invocation goes through a temp-file interface.
package xtool

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Dir names a scratch directory plus a prefix used to keep concurrent
// workers' temp files from colliding.
type Dir struct {
	Root   string
	Prefix string
}

// File returns a path under d for a file named suffix, namespaced by
// d.Prefix.
func (d Dir) File(suffix string) string {
	return filepath.Join(d.Root, fmt.Sprintf("%s-%s", d.Prefix, suffix))
}

// Invocation describes one external tool call: a binary, its arguments
// (including the temp files it reads/writes), and the log entry used to
// record the call.
type Invocation struct {
	Binary string
	Args   []string
	Log    *logrus.Entry
}

// FatalExit is returned when an external tool exits with an unexpected
// code; this is always a fatal solver error, never
// silently retried.
type FatalExit struct {
	Binary   string
	Code     int
	ExitErr  error
}

func (e *FatalExit) Error() string {
	return fmt.Sprintf("xtool: %s exited %d: %v", e.Binary, e.Code, e.ExitErr)
}

func (e *FatalExit) Unwrap() error { return e.ExitErr }

// Run executes inv without connecting its stdout or stderr to the
// parent (RunCapture is the variant that captures stdout). Any exit
// code other than wantCode is a *FatalExit.
func Run(inv Invocation, wantCode int) error {
	cmd := exec.Command(inv.Binary, inv.Args...)
	log := inv.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.Debugf("running %#v", cmd.Args)

	err := cmd.Run()
	code := exitCode(err)
	if code != wantCode {
		return &FatalExit{Binary: inv.Binary, Code: code, ExitErr: err}
	}
	return nil
}

// RunCapture runs inv and writes its stdout to out. Unlike Run, it
// does not compare the exit code against a single expected value:
// solvers in the DepQBF family use exit code 10 for sat and 20 for
// unsat, neither of which is a failure, so any of {0, 10, 20} is
// accepted and anything else is a *FatalExit.
func RunCapture(inv Invocation, out io.Writer) error {
	cmd := exec.Command(inv.Binary, inv.Args...)
	cmd.Stdout = out
	log := inv.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.Debugf("running %#v", cmd.Args)

	err := cmd.Run()
	code := exitCode(err)
	switch code {
	case 0, 10, 20:
		return nil
	default:
		return &FatalExit{Binary: inv.Binary, Code: code, ExitErr: err}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		// WEXITSTATUS equivalent: ExitCode() already extracts the
		// low byte of the wait status on every platform Go supports.
		return exitErr.ExitCode()
	}
	return -1
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = ee
	return true
}

// CreateScratch ensures d.Root exists and returns d, erroring per
// failing to create a temp file is fatal.
func CreateScratch(d Dir) (Dir, error) {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return Dir{}, fmt.Errorf("xtool: create scratch dir %q: %w", d.Root, err)
	}
	return d, nil
}

// Cleanup best-effort removes every temp file created under d for this
// prefix. Failure to clean up is never fatal.
func Cleanup(d Dir) {
	matches, err := filepath.Glob(filepath.Join(d.Root, d.Prefix+"-*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}
