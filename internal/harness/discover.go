// Package harness runs a program against recorded input/expected-output
// pairs and scores it by exact output match.
package harness

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

var (
	// ErrNoTestDir means the test directory is missing; nothing was run.
	ErrNoTestDir = errors.New("test directory not found")
	// ErrNoTests means the directory exists but holds no input files.
	ErrNoTests = errors.New("no tests found")
)

// Case pairs an input file with its expected output, when there is one.
type Case struct {
	Name         string
	InputPath    string
	ExpectedPath string
	HasExpected  bool
}

// Discover lists every file in dir ending in inputSuffix and pairs it with
// the same stem ending in outputSuffix. Cases come back in natural order, so
// 2.in runs before 10.in.
func Discover(dir, inputSuffix, outputSuffix string) ([]Case, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoTestDir, dir)
		}
		return nil, fmt.Errorf("failed to read test directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoTestDir, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test directory: %w", err)
	}

	var cases []Case
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, inputSuffix) || name == inputSuffix {
			continue
		}
		stem := strings.TrimSuffix(name, inputSuffix)
		c := Case{
			Name:         stem,
			InputPath:    filepath.Join(dir, name),
			ExpectedPath: filepath.Join(dir, stem+outputSuffix),
		}
		if st, err := os.Stat(c.ExpectedPath); err == nil && !st.IsDir() {
			c.HasExpected = true
		}
		cases = append(cases, c)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTests, dir)
	}

	sort.SliceStable(cases, func(i, j int) bool { return natural.Less(cases[i].Name, cases[j].Name) })
	return cases, nil
}
