// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package tool implements the treelite command line tools.
package tool

import (
	"fmt"

	"github.com/adamreeve/treelite"
	"github.com/adamreeve/treelite/vfs"
	"github.com/spf13/cobra"
)

// T is the container for all of the introspection tools.
type T struct {
	Commands []*cobra.Command
	model    *modelT
	opts     treelite.Options
}

// New creates a new introspection tool.
func New() *T {
	t := &T{
		opts: treelite.Options{
			FS:     vfs.Default,
			Logger: treelite.LoggerFuncs{
				OnLog:     func(msg string) { fmt.Fprintln(stdout, msg) },
				OnWarning: func(msg string) { fmt.Fprintln(stderr, msg) },
			},
		},
	}
	t.model = newModel(&t.opts)
	t.Commands = []*cobra.Command{
		t.model.Root,
	}
	return t
}
