// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/adamreeve/treelite/tool"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "treelite [command] (flags)",
	Short: "treelite model introspection and benchmarking tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(tool.New().Commands...)

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}
