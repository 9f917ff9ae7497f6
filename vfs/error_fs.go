// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package vfs

import (
	"os"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrInjected is the error returned by operations that an ErrorFS chose to
// fail.
var ErrInjected = errors.New("injected error")

// ErrorFSMode is a bit field specifying the operation types for which error
// injection is enabled.
type ErrorFSMode int

const (
	// ErrorFSRead enables errors for filesystem read operations.
	ErrorFSRead ErrorFSMode = 0x1
	// ErrorFSWrite enables errors for filesystem write operations.
	ErrorFSWrite ErrorFSMode = 0x2
)

// NewErrorFS returns a new FS implementation that wraps another FS and
// injects ErrInjected for the index'th operation matching mode (counting from
// zero). Operations after the injected one succeed.
func NewErrorFS(index int32, mode ErrorFSMode, fs FS) *ErrorFS {
	e := &ErrorFS{FS: fs, mode: mode}
	e.remaining.Store(index)
	return e
}

// ErrorFS is an FS that fails a single selected operation.
type ErrorFS struct {
	FS
	mode      ErrorFSMode
	remaining atomic.Int32
}

// Injected reports whether the error has already been injected.
func (fs *ErrorFS) Injected() bool {
	return fs.remaining.Load() < 0
}

func (fs *ErrorFS) maybeError(mode ErrorFSMode) error {
	if fs.mode&mode == 0 {
		return nil
	}
	if fs.remaining.Add(-1) == -1 {
		return ErrInjected
	}
	return nil
}

// Create implements FS.Create.
func (fs *ErrorFS) Create(name string) (File, error) {
	if err := fs.maybeError(ErrorFSWrite); err != nil {
		return nil, err
	}
	f, err := fs.FS.Create(name)
	if err != nil {
		return nil, err
	}
	return errorFile{f, fs}, nil
}

// Open implements FS.Open.
func (fs *ErrorFS) Open(name string) (File, error) {
	if err := fs.maybeError(ErrorFSRead); err != nil {
		return nil, err
	}
	f, err := fs.FS.Open(name)
	if err != nil {
		return nil, err
	}
	return errorFile{f, fs}, nil
}

// OpenDir implements FS.OpenDir.
func (fs *ErrorFS) OpenDir(name string) (File, error) {
	if err := fs.maybeError(ErrorFSRead); err != nil {
		return nil, err
	}
	f, err := fs.FS.OpenDir(name)
	if err != nil {
		return nil, err
	}
	return errorFile{f, fs}, nil
}

// Remove implements FS.Remove. Removal is never failed so that cleanup paths
// can be observed.
func (fs *ErrorFS) Remove(name string) error {
	return fs.FS.Remove(name)
}

// Rename implements FS.Rename.
func (fs *ErrorFS) Rename(oldname, newname string) error {
	if err := fs.maybeError(ErrorFSWrite); err != nil {
		return err
	}
	return fs.FS.Rename(oldname, newname)
}

// MkdirAll implements FS.MkdirAll.
func (fs *ErrorFS) MkdirAll(dir string, perm os.FileMode) error {
	if err := fs.maybeError(ErrorFSWrite); err != nil {
		return err
	}
	return fs.FS.MkdirAll(dir, perm)
}

// List implements FS.List.
func (fs *ErrorFS) List(dir string) ([]string, error) {
	if err := fs.maybeError(ErrorFSRead); err != nil {
		return nil, err
	}
	return fs.FS.List(dir)
}

// Stat implements FS.Stat.
func (fs *ErrorFS) Stat(name string) (os.FileInfo, error) {
	if err := fs.maybeError(ErrorFSRead); err != nil {
		return nil, err
	}
	return fs.FS.Stat(name)
}

type errorFile struct {
	file File
	fs   *ErrorFS
}

func (f errorFile) Close() error {
	// We don't inject errors during close as those calls should never fail in
	// practice.
	return f.file.Close()
}

func (f errorFile) Read(p []byte) (int, error) {
	if err := f.fs.maybeError(ErrorFSRead); err != nil {
		return 0, err
	}
	return f.file.Read(p)
}

func (f errorFile) ReadAt(p []byte, off int64) (int, error) {
	if err := f.fs.maybeError(ErrorFSRead); err != nil {
		return 0, err
	}
	return f.file.ReadAt(p, off)
}

func (f errorFile) Write(p []byte) (int, error) {
	if err := f.fs.maybeError(ErrorFSWrite); err != nil {
		return 0, err
	}
	return f.file.Write(p)
}

func (f errorFile) Stat() (os.FileInfo, error) {
	if err := f.fs.maybeError(ErrorFSRead); err != nil {
		return nil, err
	}
	return f.file.Stat()
}

func (f errorFile) Sync() error {
	if err := f.fs.maybeError(ErrorFSWrite); err != nil {
		return err
	}
	return f.file.Sync()
}
