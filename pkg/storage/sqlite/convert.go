package sqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
)

// DefaultCommand converts Turtle on stdin to N-Triples on stdout.
var DefaultCommand = []string{"rapper", "-q", "-i", "turtle", "-o", "ntriples", "-", "aff4://"}

// ConvertError reports a failed index build. The overlay driver treats it as
// recoverable and continues without the index.
type ConvertError struct {
	Tool string
	Err  error
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("building index with %s: %v", e.Tool, e.Err)
}

func (e *ConvertError) Unwrap() error {
	return e.Err
}

// Converter fills an index from Turtle text.
type Converter interface {
	Convert(ctx context.Context, src io.Reader, ix *Index) error
}

// NativeConverter parses the Turtle in-process.
type NativeConverter struct{}

func (NativeConverter) Convert(ctx context.Context, src io.Reader, ix *Index) error {
	if _, err := ix.Load(ctx, turtle.Decode(src)); err != nil {
		return &ConvertError{Tool: "native", Err: err}
	}
	return nil
}

// ExecConverter pipes the Turtle through an external command that writes
// N-Triples, then loads its output.
type ExecConverter struct {
	// Command is the program and its arguments. Defaults to DefaultCommand.
	Command []string
}

func (c ExecConverter) Convert(ctx context.Context, src io.Reader, ix *Index) error {
	argv := c.Command
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	tool := filepath.Base(argv[0])

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = src
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &ConvertError{Tool: tool, Err: err}
	}

	if _, err := ix.Load(ctx, turtle.DecodeNTriples(&stdout)); err != nil {
		return &ConvertError{Tool: tool, Err: err}
	}
	return nil
}

// Build returns the index cached at path, or builds it from src with conv.
// A build writes to a temporary database and renames it into place, so a
// failed build leaves no cache behind.
// The boolean result reports whether a build took place.
func Build(ctx context.Context, path string, src storage.TurtleSource, conv Converter, values *rdfvalue.Registry) (*Index, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cached, err := Open(path, values)
		return cached, false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("creating index directory: %w", err)
	}

	tmp := path + ".building"
	if err := Remove(tmp); err != nil {
		return nil, false, err
	}

	r, err := src()
	if err != nil {
		return nil, false, fmt.Errorf("opening metadata: %w", err)
	}
	defer r.Close()

	fresh, err := Open(tmp, values)
	if err != nil {
		return nil, false, err
	}
	if err := conv.Convert(ctx, r, fresh); err != nil {
		fresh.Close()
		return nil, false, errors.Join(err, Remove(tmp))
	}
	if err := fresh.Close(); err != nil {
		return nil, false, errors.Join(err, Remove(tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, false, errors.Join(fmt.Errorf("installing index: %w", err), Remove(tmp))
	}

	built, err := Open(path, values)
	return built, true, err
}
