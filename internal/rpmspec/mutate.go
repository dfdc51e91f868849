package rpmspec

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
)

var (
	// ErrNoVersionField is returned when a spec has no Version: line to rewrite
	ErrNoVersionField = errors.New("spec file has no Version: field")
)

// versionLine matches the first Version tag; group 1 is the tag with its
// spacing and group 2 the value up to the line ending.
var versionLine = regexp.MustCompile(`(?m)^(Version:[ \t]*)([^\r\n]*)`)

// SetVersion rewrites the value of the first Version: line in the spec at path.
// Every other byte of the file is preserved. When the value already equals
// version the file is not written and changed is false.
func SetVersion(path, version string) (changed bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	updated, changed, err := ReplaceVersion(data, version)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if !changed {
		return false, nil
	}

	if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceVersion is the in-memory form of SetVersion
func ReplaceVersion(data []byte, version string) ([]byte, bool, error) {
	loc := versionLine.FindSubmatchIndex(data)
	if loc == nil {
		return nil, false, ErrNoVersionField
	}

	valueStart, valueEnd := loc[4], loc[5]
	current := bytes.TrimRight(data[valueStart:valueEnd], " \t")
	if string(current) == version {
		return data, false, nil
	}

	out := make([]byte, 0, len(data)-len(current)+len(version))
	out = append(out, data[:valueStart]...)
	out = append(out, version...)
	out = append(out, data[valueEnd:]...)
	return out, true, nil
}
