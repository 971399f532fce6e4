package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
)

const stderrTail = 2048

// Subprocess runs each file in its own child process. The child is invoked
// as Command Args... <path> and must print the file's Counts as JSON on
// stdout, exiting with the code from errors.ExitCode on failure.
type Subprocess struct {
	Command string
	Args    []string
	// Env is appended to the parent's environment.
	Env []string
}

// Func returns a Func that aggregates one file in a child process.
func (s Subprocess) Func() Func[*index.Counts] {
	return func(ctx context.Context, path string) (*index.Counts, error) {
		args := append(append([]string(nil), s.Args...), path)
		cmd := exec.CommandContext(ctx, s.Command, args...)
		cmd.Env = append(os.Environ(), s.Env...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("worker for %s: %w", path, ctx.Err())
			}
			return nil, classify(err, path, tail(stderr.String()))
		}

		counts := index.NewCounts()
		if err := json.Unmarshal(stdout.Bytes(), counts); err != nil {
			return nil, apperrors.Newf(apperrors.ErrWorkerCrash, path,
				"undecodable worker output: %v", err)
		}
		return counts, nil
	}
}

func classify(err error, path, stderr string) error {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return apperrors.Newf(apperrors.ErrWorkerCrash, path, "starting worker: %v", err)
	}
	if exitErr.ExitCode() == apperrors.ExitParse {
		return apperrors.New(apperrors.ErrParse, path, parseMessage(stderr, path))
	}
	return apperrors.Newf(apperrors.ErrWorkerCrash, path, "%v: %s", exitErr, stderr)
}

// parseMessage extracts the bare parse message from a worker's stderr. The
// worker reports its error on the last line, prefixed with the program name
// and the sentinel and path that the parent adds back.
func parseMessage(stderr, path string) string {
	msg := strings.TrimSpace(stderr)
	if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
		msg = msg[i+1:]
	}
	prefix := apperrors.ErrParse.Error() + ": " + path + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		msg = msg[i+len(prefix):]
	}
	return msg
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
