// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Serialize encodes m in the versioned binary format. The output is a pure
// function of m and the options: serializing the same model twice yields the
// same bytes.
func Serialize(m *Model, opts *Options) ([]byte, error) {
	opts = opts.EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	stored, err := compress(opts.Compression, encodeBody(m))
	if err != nil {
		return nil, err
	}
	h := header{
		version:     formatVersion,
		compression: opts.Compression,
		checksum:    opts.Checksum,
		bodyLen:     uint64(len(stored)),
	}
	buf := make([]byte, headerLen, headerLen+len(stored)+trailerLen)
	h.encode(buf)
	buf = append(buf, stored...)
	buf = binary.LittleEndian.AppendUint64(buf, checksum(opts.Checksum, stored))
	return buf, nil
}

// bodyEncoder appends body fields to buf.
type bodyEncoder struct {
	buf []byte
}

func (e *bodyEncoder) uvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }
func (e *bodyEncoder) u8(v uint8)       { e.buf = append(e.buf, v) }
func (e *bodyEncoder) f64(v float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}
func (e *bodyEncoder) boolean(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

// encodeBody encodes the uncompressed body: the metadata, then every tree
// with its nodes in ascending key order.
func encodeBody(m *Model) []byte {
	e := &bodyEncoder{buf: make([]byte, 0, 64+24*m.NumNode())}
	e.uvarint(uint64(m.numFeature))
	e.uvarint(uint64(m.numClass))
	e.u8(uint8(m.transform.ID))
	var flags uint8
	if m.averageTreeOutput {
		flags |= flagAverageTreeOutput
	}
	e.u8(flags)
	e.f64(m.globalBias)
	e.f64(m.params.SigmoidAlpha)
	e.f64(m.params.RatioC)
	e.uvarint(uint64(len(m.trees)))

	for i := range m.trees {
		t := &m.trees[i]
		e.f64(t.weight)
		e.uvarint(uint64(t.keys[t.root]))
		e.uvarint(uint64(len(t.nodes)))
		for j := range t.nodes {
			n := &t.nodes[j]
			e.uvarint(uint64(t.keys[j]))
			switch n.kind {
			case KindNumericalTest:
				e.u8(tagNumericalTest)
				e.uvarint(uint64(n.feature))
				e.u8(uint8(n.op))
				e.f64(n.value)
				e.boolean(n.defaultLeft)
				e.uvarint(uint64(t.keys[n.left]))
				e.uvarint(uint64(t.keys[n.right]))
			case KindCategoricalTest:
				e.u8(tagCategoricalTest)
				e.uvarint(uint64(n.feature))
				e.boolean(n.defaultLeft)
				e.uvarint(uint64(len(n.categories)))
				for _, c := range n.categories {
					e.uvarint(uint64(c))
				}
				e.uvarint(uint64(t.keys[n.left]))
				e.uvarint(uint64(t.keys[n.right]))
			case KindLeaf:
				e.u8(tagLeaf)
				e.f64(n.value)
			case KindLeafVector:
				e.u8(tagLeafVector)
				e.uvarint(uint64(len(n.vector)))
				for _, v := range n.vector {
					e.f64(v)
				}
			default:
				panic(errors.AssertionFailedf("treelite: unknown node kind %d", errors.Safe(n.kind)))
			}
		}
	}
	return e.buf
}
