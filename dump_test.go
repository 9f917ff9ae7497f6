// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatBinary(t *testing.T) {
	m := insertDeleteModel(t)
	for _, c := range []Compression{NoCompression, SnappyCompression, ZstdCompression} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := Serialize(m, withOpts(Options{Compression: c}))
			require.NoError(t, err)
			out := FormatBinary(data)
			for _, want := range []string{
				"# header\n",
				"# .TRLITE.\n",
				"u32(1): format version",
				"# body (" + c.String() + ", ",
				"xxhash64 checksum",
				"# uncompressed body\n",
				"uvarint(3): num_feature",
				"# transform identity\n",
				"uvarint(5): root key",
				"# node 5: categorical test\n",
				"uvarint(3): category count",
				"# node 10: numerical test, <=\n",
				"f64(0.5): threshold",
				"# node 20: leaf\n",
				"f64(2): value",
			} {
				require.Contains(t, out, want)
			}
			require.NotContains(t, out, "trailing bytes")
			require.NotContains(t, out, "truncated")
		})
	}

	// Garbage is formatted without panicking.
	out := FormatBinary([]byte("not a model"))
	require.Contains(t, out, "(truncated)")
}
