// Package workdir scopes changes of the process working directory.
//
// Tools such as spectool and abf operate on the current directory, so the
// updater enters a package checkout before running them. The previous
// directory is restored on every exit path, including panics.
package workdir

import (
	"errors"
	"fmt"
	"os"
)

// ErrRestore is returned when the previous directory could not be re-entered
var ErrRestore = errors.New("failed to restore working directory")

// Enter changes into dir and returns a function that restores the
// previous working directory.
func Enter(dir string) (restore func() error, err error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("failed to enter %s: %w", dir, err)
	}
	return func() error {
		if err := os.Chdir(prev); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRestore, prev, err)
		}
		return nil
	}, nil
}

// Within runs fn with dir as the working directory. The previous directory
// is restored when fn returns or panics. A restore failure is joined with
// the error of fn.
func Within(dir string, fn func() error) (err error) {
	restore, err := Enter(dir)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := restore(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn()
}
