package slackfs

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/absfs/absfs"
)

// CommandRunner runs an external command with stdin and returns what it
// wrote to stdout and stderr.
type CommandRunner interface {
	Run(name string, args []string, stdin []byte) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(name string, args []string, stdin []byte) ([]byte, []byte, error) {
	cmd := exec.Command(name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

var slackSizePattern = regexp.MustCompile(`slack size: (\d+)`)

// BmapAccessor reaches real slack space through the bmap tool:
//
//	bmap --mode slack <file>      prints the slack content, "slack size: N" on stderr
//	bmap --mode putslack <file>   writes stdin into the slack
//	bmap --mode wipe <file>       zeroes the slack
//
// Host files are enumerated through fsys, normally an OSFileSystem.
//
// bmap pads the slack it prints with zeros, so Read strips trailing NUL, CR
// and LF bytes. A fragment ending in one of those bytes reads back shorter
// than it was written; streams produced by Codec are base64 and never do.
type BmapAccessor struct {
	bmap    string
	runner  CommandRunner
	scanner fileScanner
	ids     idAllocator
}

// NewBmapAccessor returns an accessor driving the bmap executable at
// bmapPath ("bmap" from PATH when empty).
func NewBmapAccessor(fsys absfs.FileSystem, bmapPath string, opts ...AccessorOption) *BmapAccessor {
	if bmapPath == "" {
		bmapPath = "bmap"
	}
	a := &BmapAccessor{
		bmap:    bmapPath,
		runner:  execRunner{},
		scanner: newFileScanner(fsys),
	}
	for _, opt := range opts {
		opt(&a.scanner)
	}
	return a
}

// WithRunner replaces the command runner, mostly for tests
func (a *BmapAccessor) WithRunner(r CommandRunner) *BmapAccessor {
	a.runner = r
	return a
}

func (a *BmapAccessor) run(op, path string, stdin []byte, mode string) ([]byte, []byte, error) {
	stdout, stderr, err := a.runner.Run(a.bmap, []string{"--mode", mode, path}, stdin)
	if err != nil {
		if msg := bytes.TrimSpace(stderr); len(msg) > 0 {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, nil, &AccessorError{Operation: op, Path: path, Err: err}
	}
	return stdout, stderr, nil
}

func (a *BmapAccessor) Enumerate(roots []string, minIdleDays int) ([]string, error) {
	return a.scanner.enumerate(roots, minIdleDays)
}

func (a *BmapAccessor) Metadata(path string) (string, int64, error) {
	return a.scanner.metadata(&a.ids, path)
}

func (a *BmapAccessor) Capacity(path string) (int, error) {
	if _, err := a.scanner.stat(path); err != nil {
		return 0, err
	}
	_, stderr, err := a.run("capacity", path, nil, "slack")
	if err != nil {
		return 0, err
	}
	m := slackSizePattern.FindSubmatch(stderr)
	if m == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, &AccessorError{Operation: "capacity", Path: path, Err: err}
	}
	return n, nil
}

// Read returns the slack content with the zero fill and trailing newline
// bmap prints after it removed.
func (a *BmapAccessor) Read(path string) ([]byte, error) {
	if _, err := a.scanner.stat(path); err != nil {
		return nil, err
	}
	stdout, _, err := a.run("read", path, nil, "slack")
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(stdout, "\x00\r\n"), nil
}

func (a *BmapAccessor) Write(path string, fragment []byte) error {
	_, _, err := a.run("write", path, fragment, "putslack")
	return err
}

func (a *BmapAccessor) Wipe(path string) error {
	_, _, err := a.run("wipe", path, nil, "wipe")
	return err
}
