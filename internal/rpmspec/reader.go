// Package rpmspec reads and edits RPM spec files.
//
// Metadata is normally queried through rpmspec(8) so macro expansion matches
// what rpmbuild will see. When rpmspec is not installed, HeaderReader parses
// the preamble directly and expands the simple macro forms packagers use in
// Name and Version tags.
package rpmspec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rosalinux/abf-autoupdate/internal/common/command"
	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
)

var (
	// ErrParse is returned when a spec file cannot be read for name and version
	ErrParse = errors.New("failed to parse spec file")
)

// queryFormat asks rpmspec for the source package name and version, one per line
const queryFormat = "%{name}\n%{version}\n"

// Metadata is the packaged identity read from a spec file
type Metadata struct {
	Name    string
	Version string
}

// Reader extracts Metadata from a spec file
type Reader interface {
	ReadMetadata(ctx context.Context, path string) (Metadata, error)
}

// NewReader returns an RPMSpecReader when the rpmspec program is available
// and a HeaderReader otherwise.
func NewReader(runner command.Runner, program string) Reader {
	if program == "" {
		program = "rpmspec"
	}
	if command.Available(program) {
		return &RPMSpecReader{Runner: runner, Program: program}
	}
	logger.Debug("%s not found, reading spec preambles directly", program)
	return HeaderReader{}
}

// RPMSpecReader queries spec files with rpmspec -q --srpm
type RPMSpecReader struct {
	Runner  command.Runner
	Program string
}

// ReadMetadata runs rpmspec against path. The spec directory is passed as
// _sourcedir so specs that read files next to them still evaluate.
func (r *RPMSpecReader) ReadMetadata(ctx context.Context, path string) (Metadata, error) {
	args := []string{
		"-q", "--srpm",
		"--qf", queryFormat,
		"-D", "_sourcedir " + filepath.Dir(path),
		path,
	}

	res, err := r.Runner.Run(ctx, "", r.Program, args...)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}

	lines := sanitizeOutput(res.Stdout)
	if len(lines) < 2 {
		return Metadata{}, fmt.Errorf("%w: %s: expected name and version, got %q", ErrParse, path, res.Stdout)
	}

	return Metadata{Name: lines[0], Version: lines[1]}, nil
}

// sanitizeOutput splits command output into trimmed, non-blank lines
func sanitizeOutput(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// HeaderReader parses the spec preamble in-process.
// It understands %define and %global macros, %name and %{name} references,
// %% and the conditional forms %{?name}, %{!?name}, %{?name:value} and
// %{!?name:value}. Anything else rpm would need to evaluate is ErrParse.
type HeaderReader struct{}

var (
	tagPattern    = regexp.MustCompile(`^(?i)(name|version)\s*:\s*(.*?)\s*$`)
	definePattern = regexp.MustCompile(`^%(?:define|global)\s+([A-Za-z_][A-Za-z0-9_]*)(?:\(\))?\s+(.*?)\s*$`)
	macroName     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
)

// maxExpandDepth bounds recursive macro expansion
const maxExpandDepth = 16

// ReadMetadata reads path and parses its preamble
func (HeaderReader) ReadMetadata(_ context.Context, path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer f.Close()

	meta, err := ParseHeader(f)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

// ParseHeader extracts Name and Version from spec content
func ParseHeader(r io.Reader) (Metadata, error) {
	macros := map[string]string{"nil": ""}
	var meta Metadata

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := definePattern.FindStringSubmatch(line); m != nil {
			macros[m[1]] = m[2]
			continue
		}

		m := tagPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		value, err := expand(m[2], macros, 0)
		if err != nil {
			return Metadata{}, err
		}

		switch strings.ToLower(m[1]) {
		case "name":
			if meta.Name == "" {
				meta.Name = value
				macros["name"] = value
			}
		case "version":
			if meta.Version == "" {
				meta.Version = value
				macros["version"] = value
			}
		}

		if meta.Name != "" && meta.Version != "" {
			return meta, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	switch {
	case meta.Name == "":
		return Metadata{}, fmt.Errorf("%w: no Name tag", ErrParse)
	case meta.Version == "":
		return Metadata{}, fmt.Errorf("%w: no Version tag", ErrParse)
	}
	return meta, nil
}

// expand substitutes known macros in value
func expand(value string, macros map[string]string, depth int) (string, error) {
	if depth > maxExpandDepth {
		return "", fmt.Errorf("%w: macro recursion too deep in %q", ErrParse, value)
	}

	var out strings.Builder
	for i := 0; i < len(value); {
		c := value[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}

		rest := value[i+1:]
		switch {
		case strings.HasPrefix(rest, "%"):
			out.WriteByte('%')
			i += 2
		case strings.HasPrefix(rest, "{"):
			end := closingBrace(rest)
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated macro in %q", ErrParse, value)
			}
			expanded, err := expandBraced(rest[1:end], macros, depth)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)
			i += end + 2
		default:
			name := macroName.FindString(rest)
			if name == "" {
				return "", fmt.Errorf("%w: unsupported macro in %q", ErrParse, value)
			}
			expanded, err := lookup(name, macros, depth)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)
			i += len(name) + 1
		}
	}
	return out.String(), nil
}

// expandBraced evaluates the body of a %{...} macro
func expandBraced(body string, macros map[string]string, depth int) (string, error) {
	var negate, conditional bool
	for len(body) > 0 && (body[0] == '!' || body[0] == '?') {
		if body[0] == '!' {
			negate = true
		} else {
			conditional = true
		}
		body = body[1:]
	}

	name := macroName.FindString(body)
	tail := body[len(name):]
	hasValue := strings.HasPrefix(tail, ":")
	if name == "" || (tail != "" && !hasValue) || (!conditional && (negate || hasValue)) {
		return "", fmt.Errorf("%w: unsupported macro %%{%s}", ErrParse, body)
	}
	if !conditional {
		return lookup(name, macros, depth)
	}

	_, defined := macros[name]
	if defined == negate {
		return "", nil
	}
	if hasValue {
		return expand(tail[1:], macros, depth+1)
	}
	if negate {
		return "", nil
	}
	return lookup(name, macros, depth)
}

// lookup expands a defined macro and rejects an undefined one
func lookup(name string, macros map[string]string, depth int) (string, error) {
	def, ok := macros[name]
	if !ok {
		return "", fmt.Errorf("%w: undefined macro %%%s", ErrParse, name)
	}
	return expand(def, macros, depth+1)
}

// closingBrace returns the index of the brace closing s[0], or -1
func closingBrace(s string) int {
	level := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return i
			}
		}
	}
	return -1
}
