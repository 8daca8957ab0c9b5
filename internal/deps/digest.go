package deps

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// Digest hashes the relative paths and contents of every regular file
// under root, skipping .git metadata.
func Digest(root string) (string, error) {
	hasher := xxhash.New()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".git" || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		_, _ = hasher.WriteString(filepath.ToSlash(rel))
		_, _ = hasher.Write([]byte{0})
		return hashFile(hasher, path)
	})
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to digest directory"), "path", root)
	}
	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func hashFile(hasher *xxhash.Digest, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(hasher, f); err != nil {
		return err
	}
	_, _ = hasher.Write([]byte{0})
	return nil
}
