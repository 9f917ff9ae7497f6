// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Deserialize decodes a model produced by Serialize. It fails with
// ErrTruncatedData if data is shorter than the header declares, with
// ErrCorruptFormat on a bad header or checksum, and with ErrSchema if the body
// does not describe a valid model.
func Deserialize(data []byte, opts *Options) (*Model, error) {
	opts = opts.EnsureDefaults()
	h, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	total := uint64(headerLen) + h.bodyLen + trailerLen
	if h.bodyLen > uint64(len(data)) || uint64(len(data)) < total {
		return nil, truncatedErrorf("treelite: have %d bytes, header declares %d byte body (%d bytes total)",
			len(data), h.bodyLen, total)
	}
	if uint64(len(data)) > total {
		return nil, schemaErrorf("treelite: %d trailing bytes after the trailer", uint64(len(data))-total)
	}
	stored := data[headerLen : headerLen+h.bodyLen]
	want := binary.LittleEndian.Uint64(data[headerLen+h.bodyLen:])
	switch h.checksum {
	case ChecksumTypeNone:
		opts.Logger.Warningf("treelite: serialized model has no checksum; skipping verification")
	default:
		if got := checksum(h.checksum, stored); got != want {
			return nil, corruptionErrorf("treelite: checksum mismatch: computed %#016x, stored %#016x",
				errors.Safe(got), errors.Safe(want))
		}
	}
	body, err := decompress(h.compression, stored)
	if err != nil {
		return nil, err
	}
	return decodeBody(body)
}

// bodyDecoder reads body fields. The first failure is sticky; later reads
// return zero values.
type bodyDecoder struct {
	buf []byte
	off int
	err error
}

func (d *bodyDecoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = schemaErrorf(format, args...)
	}
}

func (d *bodyDecoder) remaining() int { return len(d.buf) - d.off }

func (d *bodyDecoder) uvarint(what string) uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		d.fail("treelite: bad %s at body offset %d", what, d.off)
		return 0
	}
	d.off += n
	return v
}

// int reads a uvarint that must fit a non-negative int32.
func (d *bodyDecoder) int(what string) int {
	v := d.uvarint(what)
	if v > math.MaxInt32 {
		d.fail("treelite: %s %d out of range", what, v)
		return 0
	}
	return int(v)
}

func (d *bodyDecoder) u8(what string) uint8 {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 1 {
		d.fail("treelite: body ends before %s", what)
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *bodyDecoder) boolean(what string) bool {
	switch v := d.u8(what); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("treelite: %s has value %d, want 0 or 1", what, v)
		return false
	}
}

func (d *bodyDecoder) f64(what string) float64 {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 8 {
		d.fail("treelite: body ends before %s", what)
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.buf[d.off:]))
	d.off += 8
	return v
}

// count reads an element count and checks that the body has room for at
// least minSize bytes per element.
func (d *bodyDecoder) count(what string, minSize int) int {
	n := d.int(what)
	if d.err == nil && n > d.remaining()/minSize {
		d.fail("treelite: %s %d exceeds the %d remaining body bytes", what, n, d.remaining())
		return 0
	}
	return n
}

// decodeBody rebuilds the model from an uncompressed body. The decoded trees
// go through the same validation as ModelBuilder.Commit.
func decodeBody(body []byte) (*Model, error) {
	d := &bodyDecoder{buf: body}
	cfg := BuilderConfig{
		NumFeature: d.int("num_feature"),
		NumClass:   d.int("num_class"),
		Logger:     NoopLogger{},
	}
	transformID := TransformID(d.u8("transform id"))
	flags := d.u8("flags")
	cfg.GlobalBias = d.f64("global bias")
	cfg.SigmoidAlpha = d.f64("sigmoid alpha")
	cfg.RatioC = d.f64("ratio c")
	numTree := d.count("tree count", 10)
	if d.err != nil {
		return nil, d.err
	}
	if flags&^knownFlags != 0 {
		return nil, schemaErrorf("treelite: unknown metadata flags %#02x", flags)
	}
	cfg.AverageTreeOutput = flags&flagAverageTreeOutput != 0
	transform, err := TransformByID(transformID)
	if err != nil {
		return nil, errors.Mark(err, ErrSchema)
	}
	cfg.PredTransform = transform.Name
	if cfg.NumClass == 0 || cfg.SigmoidAlpha == 0 || cfg.RatioC == 0 {
		return nil, schemaErrorf("treelite: metadata has a zero num_class, sigmoid alpha or ratio c")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "treelite: serialized metadata"), ErrSchema)
	}

	trees := make([]*Tree, 0, numTree)
	for i := 0; i < numTree; i++ {
		t, err := decodeTree(d, i)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	if d.remaining() != 0 {
		return nil, schemaErrorf("treelite: %d bytes left in body after %d trees", d.remaining(), numTree)
	}
	if findings := validate(&cfg, transform, trees); len(findings) > 0 {
		return nil, errors.Mark(
			errors.Wrap(&ValidationError{Findings: findings}, "treelite: serialized trees"), ErrSchema)
	}
	return compile(&cfg, transform, trees), nil
}

func decodeTree(d *bodyDecoder, index int) (*Tree, error) {
	t := NewTree()
	weight := d.f64("tree weight")
	root := d.int("root key")
	numNode := d.count("node count", 3)
	if d.err != nil {
		return nil, errors.Wrapf(d.err, "tree %d", index)
	}
	var setErr error
	prev := -1
	for j := 0; j < numNode && d.err == nil && setErr == nil; j++ {
		key := d.int("node key")
		if d.err == nil && key <= prev {
			d.fail("treelite: tree %d: node key %d follows %d", index, key, prev)
		}
		prev = key
		switch tag := d.u8("node kind"); tag {
		case tagNumericalTest:
			test := NumericalTest{Feature: d.int("feature")}
			test.Op = Operator(d.u8("operator"))
			test.Threshold = d.f64("threshold")
			test.DefaultLeft = d.boolean("default left")
			test.Left = d.int("left child")
			test.Right = d.int("right child")
			if d.err == nil {
				setErr = t.SetNumericalTestNode(key, test)
			}
		case tagCategoricalTest:
			test := CategoricalTest{Feature: d.int("feature")}
			test.DefaultLeft = d.boolean("default left")
			n := d.count("category count", 1)
			test.LeftCategories = make([]uint32, 0, n)
			for k := 0; k < n; k++ {
				c := d.uvarint("category")
				if c > math.MaxUint32 {
					d.fail("treelite: tree %d, node %d: category %d out of range", index, key, c)
				}
				test.LeftCategories = append(test.LeftCategories, uint32(c))
			}
			test.Left = d.int("left child")
			test.Right = d.int("right child")
			if d.err == nil {
				setErr = t.SetCategoricalTestNode(key, test)
			}
		case tagLeaf:
			v := d.f64("leaf value")
			if d.err == nil {
				setErr = t.SetLeafNode(key, v)
			}
		case tagLeafVector:
			n := d.count("leaf vector length", 8)
			vec := make([]float64, n)
			for k := range vec {
				vec[k] = d.f64("leaf vector value")
			}
			if d.err == nil {
				setErr = t.SetLeafVectorNode(key, vec)
			}
		default:
			if d.err == nil {
				d.fail("treelite: tree %d, node %d: unknown node kind %d", index, key, tag)
			}
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if setErr != nil {
		return nil, errors.Mark(errors.Wrapf(setErr, "treelite: tree %d", index), ErrSchema)
	}
	if err := t.SetWeight(weight); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "treelite: tree %d", index), ErrSchema)
	}
	if err := t.SetRoot(root); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "treelite: tree %d", index), ErrSchema)
	}
	return t, nil
}
