package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscape   = errors.New("source: path escape violation")
	ErrFileTooLarge = errors.New("source: file size limit exceeded")
)

// Loader lists and reads source files below Root.
type Loader struct {
	Root        string
	MaxFileSize int64
	// Extensions filters List; empty accepts every file. Compared
	// case-insensitively, with the leading dot.
	Extensions []string
}

func NewLoader(root string, maxFileSize int64, extensions ...string) *Loader {
	absRoot, _ := filepath.Abs(root)
	return &Loader{
		Root:        absRoot,
		MaxFileSize: maxFileSize,
		Extensions:  extensions,
	}
}

// resolve jails path below Root. Relative paths are taken from Root.
func (l *Loader) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.Root, path)
	}
	clean := filepath.Clean(path)
	rel, err := filepath.Rel(l.Root, clean)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	return clean, nil
}

// List returns path itself when it is a file, otherwise every matching
// file below it in lexical order.
func (l *Loader) List(path string) ([]string, error) {
	root, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !l.accepts(p) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}
	return files, nil
}

// Read returns the content of path, enforcing the root jail and the size
// limit.
func (l *Loader) Read(path string) (string, error) {
	clean, err := l.resolve(path)
	if err != nil {
		return "", err
	}

	if l.MaxFileSize > 0 {
		info, err := os.Stat(clean)
		if err != nil {
			return "", err
		}
		if info.Size() > l.MaxFileSize {
			return "", fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, path, info.Size())
		}
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *Loader) accepts(path string) bool {
	if len(l.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range l.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
