// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package vfs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
)

const sep = "/"

// NewMem returns a new memory-backed FS implementation.
func NewMem() *MemFS {
	return &MemFS{root: newMemDir()}
}

// MemFS implements FS. Directories are created implicitly by MkdirAll and
// must exist before files are created within them.
type MemFS struct {
	mu   sync.Mutex
	root *memNode
}

var _ FS = &MemFS{}

type memNode struct {
	isDir    bool
	children map[string]*memNode
	data     []byte
	modTime  time.Time
}

func newMemDir() *memNode {
	return &memNode{isDir: true, children: make(map[string]*memNode), modTime: time.Now()}
}

// String dumps the contents of the MemFS, one path per line.
func (y *MemFS) String() string {
	y.mu.Lock()
	defer y.mu.Unlock()
	var buf bytes.Buffer
	var dump func(prefix string, n *memNode)
	dump = func(prefix string, n *memNode) {
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := n.children[name]
			if c.isDir {
				fmt.Fprintf(&buf, "%s%s/\n", prefix, name)
				dump(prefix+name+sep, c)
				continue
			}
			fmt.Fprintf(&buf, "%s%s (%d bytes)\n", prefix, name, len(c.data))
		}
	}
	dump("", y.root)
	return buf.String()
}

// lookup splits fullname into its parent directory node and final fragment.
// REQUIRES: y.mu is held.
func (y *MemFS) lookup(fullname string) (*memNode, string, error) {
	fullname = strings.TrimLeft(path.Clean(fullname), sep)
	if fullname == "." {
		fullname = ""
	}
	dir := y.root
	frags := strings.Split(fullname, sep)
	for _, frag := range frags[:len(frags)-1] {
		child := dir.children[frag]
		if child == nil {
			return nil, "", &os.PathError{Op: "open", Path: fullname, Err: oserror.ErrNotExist}
		}
		if !child.isDir {
			return nil, "", &os.PathError{Op: "open", Path: fullname, Err: errors.New("not a directory")}
		}
		dir = child
	}
	return dir, frags[len(frags)-1], nil
}

// Create implements FS.Create.
func (y *MemFS) Create(fullname string) (File, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	dir, frag, err := y.lookup(fullname)
	if err != nil {
		return nil, err
	}
	if frag == "" {
		return nil, errors.New("treelite/vfs: empty file name")
	}
	if c := dir.children[frag]; c != nil && c.isDir {
		return nil, &os.PathError{Op: "create", Path: fullname, Err: errors.New("is a directory")}
	}
	n := &memNode{modTime: time.Now()}
	dir.children[frag] = n
	return &memFile{name: frag, n: n, fs: y, write: true}, nil
}

// Open implements FS.Open.
func (y *MemFS) Open(fullname string) (File, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	dir, frag, err := y.lookup(fullname)
	if err != nil {
		return nil, err
	}
	n := dir
	if frag != "" {
		n = dir.children[frag]
	}
	if n == nil {
		return nil, &os.PathError{Op: "open", Path: fullname, Err: oserror.ErrNotExist}
	}
	return &memFile{name: frag, n: n, fs: y, read: true}, nil
}

// OpenDir implements FS.OpenDir.
func (y *MemFS) OpenDir(fullname string) (File, error) {
	f, err := y.Open(fullname)
	if err != nil {
		return nil, err
	}
	if !f.(*memFile).n.isDir {
		return nil, &os.PathError{Op: "open", Path: fullname, Err: errors.New("not a directory")}
	}
	return f, nil
}

// Remove implements FS.Remove.
func (y *MemFS) Remove(fullname string) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	dir, frag, err := y.lookup(fullname)
	if err != nil {
		return err
	}
	c := dir.children[frag]
	if c == nil {
		return &os.PathError{Op: "remove", Path: fullname, Err: oserror.ErrNotExist}
	}
	if c.isDir && len(c.children) > 0 {
		return &os.PathError{Op: "remove", Path: fullname, Err: errors.New("directory not empty")}
	}
	delete(dir.children, frag)
	return nil
}

// Rename implements FS.Rename.
func (y *MemFS) Rename(oldname, newname string) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	oldDir, oldFrag, err := y.lookup(oldname)
	if err != nil {
		return err
	}
	n := oldDir.children[oldFrag]
	if n == nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: oserror.ErrNotExist}
	}
	newDir, newFrag, err := y.lookup(newname)
	if err != nil {
		return err
	}
	delete(oldDir.children, oldFrag)
	newDir.children[newFrag] = n
	return nil
}

// MkdirAll implements FS.MkdirAll.
func (y *MemFS) MkdirAll(dirname string, perm os.FileMode) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	dirname = strings.TrimLeft(path.Clean(dirname), sep)
	if dirname == "." || dirname == "" {
		return nil
	}
	dir := y.root
	for _, frag := range strings.Split(dirname, sep) {
		child := dir.children[frag]
		if child == nil {
			child = newMemDir()
			dir.children[frag] = child
		} else if !child.isDir {
			return &os.PathError{Op: "mkdir", Path: dirname, Err: errors.New("not a directory")}
		}
		dir = child
	}
	return nil
}

// List implements FS.List.
func (y *MemFS) List(dirname string) ([]string, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	dir, frag, err := y.lookup(dirname)
	if err != nil {
		return nil, err
	}
	if frag != "" {
		dir = dir.children[frag]
	}
	if dir == nil || !dir.isDir {
		return nil, &os.PathError{Op: "list", Path: dirname, Err: oserror.ErrNotExist}
	}
	names := make([]string, 0, len(dir.children))
	for name := range dir.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Stat implements FS.Stat.
func (y *MemFS) Stat(name string) (os.FileInfo, error) {
	f, err := y.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

// PathDir implements FS.PathDir.
func (*MemFS) PathDir(p string) string {
	return path.Dir(p)
}

type memFile struct {
	name        string
	n           *memNode
	fs          *MemFS
	rpos        int
	read, write bool
	closed      bool
}

var _ File = (*memFile)(nil)

func (f *memFile) Close() error {
	if f.closed {
		return errors.AssertionFailedf("treelite/vfs: %q already closed", f.name)
	}
	f.closed = true
	return nil
}

func (f *memFile) Read(p []byte) (int, error) {
	if !f.read {
		return 0, errors.New("treelite/vfs: file was not opened for reading")
	}
	if f.n.isDir {
		return 0, errors.New("treelite/vfs: cannot read a directory")
	}
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.rpos >= len(f.n.data) {
		return 0, io.EOF
	}
	n := copy(p, f.n.data[f.rpos:])
	f.rpos += n
	return n, nil
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if !f.read {
		return 0, errors.New("treelite/vfs: file was not opened for reading")
	}
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if off >= int64(len(f.n.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.n.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	if !f.write {
		return 0, errors.New("treelite/vfs: file was not created for writing")
	}
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.n.data = append(f.n.data, p...)
	f.n.modTime = time.Now()
	return len(p), nil
}

func (f *memFile) Stat() (os.FileInfo, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	return &memFileInfo{name: f.name, size: int64(len(f.n.data)), isDir: f.n.isDir, modTime: f.n.modTime}, nil
}

func (f *memFile) Sync() error {
	return nil
}

type memFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

var _ os.FileInfo = (*memFileInfo)(nil)

func (i *memFileInfo) Name() string       { return i.name }
func (i *memFileInfo) Size() int64        { return i.size }
func (i *memFileInfo) ModTime() time.Time { return i.modTime }
func (i *memFileInfo) IsDir() bool        { return i.isDir }
func (i *memFileInfo) Sys() interface{}   { return nil }

func (i *memFileInfo) Mode() os.FileMode {
	if i.isDir {
		return os.ModeDir | 0755
	}
	return 0755
}
