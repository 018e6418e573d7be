package docconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrPandocNotFound is returned when the pandoc binary is not on PATH.
var ErrPandocNotFound = errors.New("pandoc not found in PATH")

// CommandRunner abstracts command execution so conversion can be tested
// without spawning real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// LookPandoc resolves the pandoc binary.
func LookPandoc(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPandocNotFound, err)
	}
	return path, nil
}

// pandocFrom enables the table, raw HTML and TeX math extensions that the
// translated documents rely on.
const pandocFrom = "markdown+raw_html+grid_tables+pipe_tables+simple_tables+multiline_tables+table_captions+tex_math_dollars"

// pandocArgs returns the arguments converting input (a file name relative to
// the working directory) into output.
func pandocArgs(input, output string) []string {
	return []string{
		input,
		"-o", output,
		"--extract-media=media",
		"--standalone",
		"--from=" + pandocFrom,
		"--to=docx",
		"--mathml",
		"--table-of-contents",
		"--number-sections",
		"--toc-depth=3",
	}
}
