package io

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// create file with its parent direcrtory, if missing.
//
// args:
//   - name: filepath to be created.
//   - fmod: os.FileMode for file.
//   - dmod: os.FileMode for directory.
//
// Note that `dmod` effects to only newly-created direcotries.
// So, directoreis which have existed are not effected with `dmod`.
//
// return (*os.File, err):
//   When a file is created successfully, `(file, nil)` pair will be returned.
//   Or, if it failed creating one of file or direcories, `(nil, err)` pair will be returned.
//
func CreateAll(name string, fmod os.FileMode, dmod os.FileMode) (*os.File, error) {

	dirname := filepath.Dir(name)
	if err := os.MkdirAll(dirname, dmod); err != nil {
		return nil, err
	}

	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, fmod)
}

// copy regular files in a directory tree into another directory,
// keeping the relative layout.
//
// args:
//   - src: source directory.
//   - dest: destination directory. created if missing.
//
// return err:
//
//	nil when all files are copied. Otherwise, the error of the first
//	failed copy.
func DirCopy(src string, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		from, err := os.Open(path)
		if err != nil {
			return err
		}
		defer from.Close()

		info, err := d.Info()
		if err != nil {
			return err
		}
		to, err := CreateAll(filepath.Join(dest, rel), info.Mode().Perm(), 0755)
		if err != nil {
			return err
		}
		defer to.Close()

		_, err = io.Copy(to, from)
		return err
	})
}
