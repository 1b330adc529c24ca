package gfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TestDataEnv names the environment variable consulted for the test data
// directory when none is given.
const TestDataEnv = "UPPERAIR_TEST_DATA"

// ErrNotFound is returned when a named test data resource does not exist.
var ErrNotFound = errors.New("test data not found")

// TestData resolves a named test data resource such as "GFS_test.nc" in dir,
// or in $UPPERAIR_TEST_DATA when dir is empty.
func TestData(dir, name string) (string, error) {
	if dir == "" {
		dir = os.Getenv(TestDataEnv)
	}
	if dir == "" {
		return "", fmt.Errorf("%s: no test data directory given and $%s unset: %w", name, TestDataEnv, ErrNotFound)
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid test data name %q", name)
	}
	path := filepath.Join(dir, name)
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s in %s: %w", name, dir, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", path, ErrNotFound)
	}
	return path, nil
}
