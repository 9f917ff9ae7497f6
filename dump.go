// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"fmt"

	"github.com/adamreeve/treelite/internal/binfmt"
)

// FormatBinary returns an annotated hex dump of a serialized model: the
// header, the stored body, the trailer and, when the body can be
// decompressed, every field of the body. It is best effort and never fails;
// problems are reported as comments in the output.
func FormatBinary(data []byte) string {
	f := binfmt.New(data)
	f.Comment("header")
	f.HexTextln(min(len(formatMagic), f.Remaining()))
	version := f.Uint32("format version")
	f.Uint32("byte-order mark")
	c := Compression(f.Uint8("compression"))
	ck := ChecksumType(f.Uint8("checksum type"))
	f.HexBytesln(bodyLenOffset-reservedOffset, "reserved")
	bodyLen := f.Uint64("body length")

	stored := data[f.Offset():]
	if uint64(len(stored)) > bodyLen {
		stored = stored[:bodyLen]
	}
	f.Comment("body (%s, %d bytes)", c, len(stored))
	f.HexBytesln(len(stored), "stored body")
	f.Comment("trailer")
	f.Uint64("%s checksum", ck)
	if f.More() {
		f.HexBytesln(f.Remaining(), "trailing bytes")
	}
	out := f.String()

	if version != formatVersion || c >= nCompression {
		return out
	}
	body, err := decompress(c, stored)
	if err != nil {
		return out + fmt.Sprintf("# %v\n", err)
	}
	bf := binfmt.New(body)
	bf.Comment("uncompressed body")
	formatBody(bf)
	return out + bf.String()
}

func formatBody(f *binfmt.Formatter) {
	f.Uvarint("num_feature")
	f.Uvarint("num_class")
	id := TransformID(f.Uint8("transform"))
	if t, err := TransformByID(id); err == nil {
		f.Comment("transform %s", t.Name)
	}
	f.Uint8("flags")
	f.Float64("global bias")
	f.Float64("sigmoid alpha")
	f.Float64("ratio c")
	numTree := f.Uvarint("tree count")
	for i := uint64(0); i < numTree && f.More(); i++ {
		f.Comment("tree %d", i)
		f.Float64("weight")
		f.Uvarint("root key")
		numNode := f.Uvarint("node count")
		for j := uint64(0); j < numNode && f.More(); j++ {
			if !formatNode(f) {
				return
			}
		}
	}
	if f.More() {
		f.HexBytesln(f.Remaining(), "trailing bytes")
	}
}

// formatNode formats one node, returning false if its kind is unknown.
func formatNode(f *binfmt.Formatter) bool {
	key := f.Uvarint("key")
	switch tag := f.Uint8("kind"); tag {
	case tagNumericalTest:
		f.Uvarint("feature")
		op := Operator(f.Uint8("operator"))
		f.Comment("node %d: numerical test, %s", key, op)
		f.Float64("threshold")
		f.Uint8("default left")
		f.Uvarint("left")
		f.Uvarint("right")
	case tagCategoricalTest:
		f.Comment("node %d: categorical test", key)
		f.Uvarint("feature")
		f.Uint8("default left")
		n := f.Uvarint("category count")
		for i := uint64(0); i < n && f.More(); i++ {
			f.Uvarint("category")
		}
		f.Uvarint("left")
		f.Uvarint("right")
	case tagLeaf:
		f.Comment("node %d: leaf", key)
		f.Float64("value")
	case tagLeafVector:
		f.Comment("node %d: leaf vector", key)
		n := f.Uvarint("length")
		for i := uint64(0); i < n && f.More(); i++ {
			f.Float64("value %d", i)
		}
	default:
		f.Comment("unknown node kind %d", tag)
		f.HexBytesln(f.Remaining(), "unparsed")
		return false
	}
	return true
}
