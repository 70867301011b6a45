// Package fileops implements the flat-file contracts the detection pipeline
// depends on: listing files by prefix, reading and appending line-delimited
// text, and hashing file content. Everything goes through an afero.Fs so the
// pipeline can run against an in-memory filesystem in tests.
package fileops

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// FS is a working directory on top of an afero filesystem. Relative names
// resolve against Root.
type FS struct {
	fs   afero.Fs
	root string
}

// New wraps fsys rooted at dir. dir must be absolute.
func New(fsys afero.Fs, dir string) *FS {
	return &FS{fs: fsys, root: filepath.Clean(dir)}
}

// NewOS returns an FS over the real filesystem rooted at dir.
func NewOS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workdir: %w", err)
	}
	return New(afero.NewOsFs(), abs), nil
}

// Root returns the absolute working directory.
func (f *FS) Root() string { return f.root }

// Path resolves name against the working directory.
func (f *FS) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(f.root, name)
}

// ListFilenames returns the names of regular files in the working directory
// whose name starts with prefix, sorted lexically.
func (f *FS) ListFilenames(prefix string) ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(f.fs, f.root))
	names, err := doublestar.Glob(fsys, escapeMeta(prefix)+"*", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether name exists.
func (f *FS) Exists(name string) bool {
	ok, err := afero.Exists(f.fs, f.Path(name))
	return err == nil && ok
}

// ReadFile returns the content of name.
func (f *FS) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(f.fs, f.Path(name))
}

// ReadLines reads name into lines. A final line without a trailing newline
// is included; carriage returns before the newline are dropped.
func (f *FS) ReadLines(name string) ([]string, error) {
	data, err := f.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return SplitLines(data), nil
}

// ReadLinesFrom returns the newline-terminated lines of name starting at
// line offset, together with the total number of terminated lines. A trailing
// fragment without a newline is not counted yet.
func (f *FS) ReadLinesFrom(name string, offset int) ([]string, int, error) {
	file, err := f.fs.Open(f.Path(name))
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var lines []string
	total := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, err
		}
		if total >= offset {
			lines = append(lines, trimEOL(line))
		}
		total++
	}
	return lines, total, nil
}

// CountLines returns the number of newline-terminated lines in name.
func (f *FS) CountLines(name string) (int, error) {
	data, err := f.ReadFile(name)
	if err != nil {
		return 0, err
	}
	return bytes.Count(data, []byte{'\n'}), nil
}

// WriteLines overwrites name with one line per element. The write goes to a
// temp file first and is renamed into place.
func (f *FS) WriteLines(name string, lines []string) error {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return f.WriteFileAtomic(name, buf.Bytes())
}

// WriteFileAtomic writes data to name via a temp file and rename, creating
// parent directories as needed.
func (f *FS) WriteFileAtomic(name string, data []byte) error {
	path := f.Path(name)
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return f.fs.Rename(tmp, path)
}

// AppendLines appends one line per element to name, creating it if needed.
func (f *FS) AppendLines(name string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	path := f.Path(name)
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := f.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// HashFile returns ContentHash of the content of name.
func (f *FS) HashFile(name string) (string, error) {
	data, err := f.ReadFile(name)
	if err != nil {
		return "", err
	}
	return ContentHash(data), nil
}

// ContentHash returns a stable hex digest of data. It detects accidental
// drift only and is not collision resistant.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// SplitLines splits data on '\n', dropping a trailing '\r' from each line.
// A trailing empty segment after the last newline is not returned.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	s = strings.TrimSuffix(s, "\n")
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// IsNotExist reports whether err means a file is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// escapeMeta quotes glob metacharacters so prefix matches literally.
func escapeMeta(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '\\', '*', '?', '[', ']', '{', '}':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
