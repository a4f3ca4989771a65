package fetlife

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const stagedJarFile = "cookies.txt"

// stagedJar is a private scratch directory holding one jar as a cookies.txt file for
// tools that only speak files. It lives for one exchange: acquire with stageJar, defer
// release immediately, and nothing is left on disk whichever way the exchange ends.
type stagedJar struct {
	dir string
}

// stageJar creates a fresh directory under root (os.TempDir when empty) and writes jar
// into it. Directories are never shared, so concurrent exchanges cannot see each other's
// cookies.
func stageJar(root string, jar Jar) (*stagedJar, error) {
	dir, err := os.MkdirTemp(root, "fl-jar-*")
	if err != nil {
		return nil, fmt.Errorf("stage jar: %w", err)
	}
	staged := &stagedJar{dir: dir}

	f, err := os.OpenFile(staged.JarPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stage jar: %w", err), staged.release())
	}
	err = jar.WriteNetscape(f)
	closeErr := f.Close()
	if err = errors.Join(err, closeErr); err != nil {
		return nil, errors.Join(fmt.Errorf("stage jar: %w", err), staged.release())
	}
	return staged, nil
}

func (s *stagedJar) JarPath() string {
	return filepath.Join(s.dir, stagedJarFile)
}

// Path returns a path for another scratch file in the staging directory.
func (s *stagedJar) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// reload reads the jar back after a tool has rewritten it. A tool that knew no cookies
// may have left no file at all.
func (s *stagedJar) reload() (Jar, error) {
	f, err := os.Open(s.JarPath())
	if errors.Is(err, os.ErrNotExist) {
		return NewJar(), nil
	}
	if err != nil {
		return Jar{}, err
	}
	defer f.Close()
	return ReadNetscapeJar(f)
}

func (s *stagedJar) release() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}
