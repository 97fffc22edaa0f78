package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/blobtools/blobcopy/copyverify"
)

// FilesystemBackend stores objects as files under a single root directory.
// It exists for development and tests; "server-side" copy is a local file
// copy within the root.
type FilesystemBackend struct {
	Root string
}

func absPath(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}
	p, err = filepath.EvalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("evaluating symlinks: %w", err)
	}
	return p, nil
}

// objectPath resolves a key to a path under Root, rejecting keys that
// escape the root through ".." components or symlinks.
func (b *FilesystemBackend) objectPath(key string) (string, error) {
	realRoot, err := absPath(b.Root)
	if err != nil {
		return "", fmt.Errorf("getting real root: %w", err)
	}

	parentPath, err := absPath(filepath.Join(b.Root, filepath.Dir(key)))
	if err != nil {
		// A missing parent directory means the key cannot exist.
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolving parent of %s: %w", key, copyverify.ErrNotFound)
		}
		return "", fmt.Errorf("getting parent path: %w", err)
	}

	if !strings.HasPrefix(parentPath+string(filepath.Separator), realRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("parent path %q is outside of root %q", parentPath, realRoot)
	}

	return filepath.Join(parentPath, filepath.Base(key)), nil
}

func (b *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	path, err := b.objectPath(key)
	if err != nil {
		if errors.Is(err, copyverify.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("statting %s: %w", key, err)
	}
	return true, nil
}

func (b *FilesystemBackend) Stat(ctx context.Context, key string) (copyverify.ObjectInfo, error) {
	path, err := b.objectPath(key)
	if err != nil {
		return copyverify.ObjectInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return copyverify.ObjectInfo{}, fmt.Errorf("statting %s: %w", key, copyverify.ErrNotFound)
		}
		return copyverify.ObjectInfo{}, fmt.Errorf("statting %s: %w", key, err)
	}
	return copyverify.ObjectInfo{Size: info.Size()}, nil
}

func (b *FilesystemBackend) Copy(ctx context.Context, sourceKey, destKey string) error {
	sourcePath, err := b.objectPath(sourceKey)
	if err != nil {
		return err
	}
	destPath, err := b.objectPath(destKey)
	if err != nil {
		return err
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", sourceKey, err)
	}
	defer source.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destKey, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, source); err != nil {
		return fmt.Errorf("copying %s to %s: %w", sourceKey, destKey, err)
	}
	return nil
}

func (b *FilesystemBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := b.objectPath(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("opening %s: %w", key, copyverify.ErrNotFound)
		}
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	return file, nil
}

func (b *FilesystemBackend) Validate() []string {
	var errs []string
	if b.Root == "" {
		errs = append(errs, "Root must not be empty")
	}
	return errs
}
