// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"github.com/adamreeve/treelite/vfs"
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/errors"
)

// tempSuffix is appended to the destination path while a model is written.
const tempSuffix = ".tmp"

// SerializeFile serializes m to path on opts.FS. The bytes are written to a
// temporary file which is synced and then renamed over path, so readers see
// either the previous file or the complete new one. On failure the temporary
// file is removed and the error is marked with ErrIO.
func SerializeFile(m *Model, path string, opts *Options) error {
	opts = opts.EnsureDefaults()
	data, err := Serialize(m, opts)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(opts.FS, path, data); err != nil {
		return err
	}
	opts.Logger.Infof("treelite: wrote model to %s (%s)", path,
		crhumanize.Bytes(int64(len(data)), crhumanize.Compact, crhumanize.OmitI))
	return nil
}

func writeFileAtomic(fs vfs.FS, path string, data []byte) (err error) {
	tmp := path + tempSuffix
	f, err := fs.Create(tmp)
	if err != nil {
		return ioErrorf(err, "treelite: creating %s", tmp)
	}
	defer func() {
		if err != nil {
			if f != nil {
				err = errors.CombineErrors(err, f.Close())
			}
			_ = fs.Remove(tmp)
		}
	}()
	if _, err = f.Write(data); err != nil {
		return ioErrorf(err, "treelite: writing %s", tmp)
	}
	if err = f.Sync(); err != nil {
		return ioErrorf(err, "treelite: syncing %s", tmp)
	}
	closeErr := f.Close()
	f = nil
	if closeErr != nil {
		return ioErrorf(closeErr, "treelite: closing %s", tmp)
	}
	if err = fs.Rename(tmp, path); err != nil {
		return ioErrorf(err, "treelite: renaming %s to %s", tmp, path)
	}
	dir, err := fs.OpenDir(fs.PathDir(path))
	if err != nil {
		return ioErrorf(err, "treelite: opening directory of %s", path)
	}
	if err = dir.Sync(); err != nil {
		err = ioErrorf(err, "treelite: syncing directory of %s", path)
	}
	return errors.CombineErrors(err, dir.Close())
}

// DeserializeFile reads and deserializes the model stored at path on
// opts.FS. Failing to read the file is marked with ErrIO; the decoded contents
// are checked as by Deserialize.
func DeserializeFile(path string, opts *Options) (*Model, error) {
	opts = opts.EnsureDefaults()
	data, err := vfs.ReadFile(opts.FS, path)
	if err != nil {
		return nil, ioErrorf(err, "treelite: reading %s", path)
	}
	m, err := Deserialize(data, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "treelite: %s", path)
	}
	return m, nil
}
