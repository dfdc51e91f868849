package autoupdate

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// ErrNoPackages is returned when a package list names no packages
var ErrNoPackages = errors.New("no packages given")

// ReadPackageList reads one package name per line. Blank lines and lines
// starting with # are ignored, as is anything after whitespace on a line.
func ReadPackageList(r io.Reader) ([]string, error) {
	var packages []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		packages = append(packages, strings.Fields(line)[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(packages) == 0 {
		return nil, ErrNoPackages
	}
	return packages, nil
}

// ReadPackageFile reads a package list from path
func ReadPackageFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPackageList(f)
}
