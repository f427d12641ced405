//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package codec

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// DirCache keeps rendered variants at local directory as {variant}/{file}
type DirCache struct {
	root string
	fsys fs.FS
}

func NewDirCache(root string) (*DirCache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errCodecIO.New(err)
	}

	return &DirCache{root: root, fsys: os.DirFS(root)}, nil
}

// Open cached variant
func (c *DirCache) Open(key string) (fs.File, error) {
	return c.fsys.Open(key)
}

// Path of cached variant at local file system
func (c *DirCache) Path(key string) (string, error) {
	if !fs.ValidPath(key) {
		return "", &fs.PathError{Op: "path", Path: key, Err: fs.ErrInvalid}
	}
	return filepath.Join(c.root, filepath.FromSlash(key)), nil
}

// Put variant into cache, the file appears atomically
func (c *DirCache) Put(_ context.Context, key string, _ string, r io.Reader) error {
	path, err := c.Path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	fd, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}

	if _, err := io.Copy(fd, r); err != nil {
		fd.Close()
		os.Remove(fd.Name())
		return err
	}

	if err := fd.Close(); err != nil {
		os.Remove(fd.Name())
		return err
	}

	return os.Rename(fd.Name(), path)
}

// Invalidate purges all cached variants
func (c *DirCache) Invalidate(context.Context) error {
	seq, err := os.ReadDir(c.root)
	if err != nil {
		return errCodecIO.New(err)
	}

	for _, entry := range seq {
		if err := os.RemoveAll(filepath.Join(c.root, entry.Name())); err != nil {
			return errCodecIO.New(err)
		}
	}

	slog.Debug("media cache purged", slog.String("root", c.root), slog.Int("entries", len(seq)))
	return nil
}
