// Package fatal handles failures the runtime cannot or will not recover from.
//
// A control loop running without the scheduling or memory guarantees it asked
// for is worse than one not running at all, so these take the whole process
// down. Deferred functions and finalizers do not run. Output goes straight to
// stderr and a dump file, bypassing any logger that might itself be broken.
package fatal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/valyala/fastrand"
)

// ExitCode is the status the process terminates with.
const ExitCode = 255

// Hooks swapped by tests.
var (
	exit    = os.Exit
	stderr  = io.Writer(os.Stderr)
	dumpDir = os.TempDir
)

// DumpName returns a fresh crash dump path.
func DumpName() string {
	return filepath.Join(dumpDir(), fmt.Sprintf("rtring_fatal_error_%d.txt", fastrand.Uint32()))
}

// Die reports the caller's location and the formatted message, dumps both to a
// file and exits the process immediately.
func Die(format string, args ...any) {
	die(2, fmt.Sprintf(format, args...))
}

// DieErrno is Die for a failed OS call: the message carries the errno value
// and its description.
func DieErrno(errno error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	die(2, fmt.Sprintf("%s (caused by error code %d, %v)", msg, code(errno), errno))
}

func die(skip int, msg string) {
	info := "At unknown location"
	if _, file, line, ok := runtime.Caller(skip); ok {
		info = fmt.Sprintf("At %s:%d", file, line)
	}

	fmt.Fprintln(stderr, "rtring encountered a fatal error! Info to follow:")
	fmt.Fprintln(stderr, info)
	fmt.Fprintln(stderr, msg)

	name := DumpName()
	if err := writeDump(name, info, msg); err != nil {
		fmt.Fprintf(stderr, "Failed to write error info to %s: %v\n", name, err)
	} else {
		fmt.Fprintf(stderr, "Info reproduced to %s\n", name)
	}
	exit(ExitCode)
}

func writeDump(name, info, msg string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%s\n%s\n", info, msg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// code extracts the numeric errno from err, or -1.
func code(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return -1
}
