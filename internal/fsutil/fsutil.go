// Package fsutil holds the file copy helpers shared by the engine and the
// builtin tools.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirMode is used for every directory created in the target tree.
const DirMode fs.FileMode = 0o755

// CopyFile copies src to dst, creating dst's parent directories and keeping
// the permission bits of src.
func CopyFile(dst, src string) (err error) {
	st, err := os.Stat(src)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("copy %s: is a directory", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), DirMode); err != nil {
		return err
	}
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if e := w.Close(); e != nil {
			err = errors.Join(err, e)
		}
	}()
	_, err = io.Copy(w, r)
	return err
}

// CopyTree copies the directory src into dst, merging with what dst already
// holds. Files for which skip returns true are left out. skip may be nil.
func CopyTree(dst, src string, skip func(rel string, d fs.DirEntry) bool) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && skip != nil && skip(rel, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, DirMode)
		}
		return CopyFile(out, path)
	})
}

// Copy copies src to dst, whether src is a file or a directory.
func Copy(dst, src string) error {
	st, err := os.Stat(src)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return CopyTree(dst, src, nil)
	}
	return CopyFile(dst, src)
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
