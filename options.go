// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"fmt"
	"strings"

	"github.com/adamreeve/treelite/internal/parallel"
	"github.com/adamreeve/treelite/vfs"
	"github.com/cockroachdb/errors"
)

// Compression identifies the codec applied to the body of a serialized model.
// The numeric values are part of the serialized format.
type Compression uint8

// The supported compression codecs.
const (
	NoCompression Compression = iota
	SnappyCompression
	ZstdCompression
	nCompression
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case SnappyCompression:
		return "snappy"
	case ZstdCompression:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses the name of a compression codec.
func ParseCompression(s string) (Compression, error) {
	for c := NoCompression; c < nCompression; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, configErrorf("treelite: unknown compression %q", s)
}

// ChecksumType identifies the checksum stored in the trailer of a serialized
// model. The numeric values are part of the serialized format.
type ChecksumType uint8

// The supported checksum types.
const (
	ChecksumTypeNone ChecksumType = iota
	ChecksumTypeXXHash64
	nChecksumType
)

// String implements fmt.Stringer.
func (c ChecksumType) String() string {
	switch c {
	case ChecksumTypeNone:
		return "none"
	case ChecksumTypeXXHash64:
		return "xxhash64"
	default:
		return fmt.Sprintf("checksum(%d)", uint8(c))
	}
}

// Schedule controls how a Predictor distributes rows across workers.
type Schedule = parallel.Schedule

// Row distribution schedules.
var (
	// StaticSchedule splits rows into one contiguous range per worker.
	StaticSchedule = parallel.Static
	// DynamicSchedule hands out chunks of rows as workers become free.
	DynamicSchedule = parallel.Dynamic
	// GuidedSchedule hands out chunks that shrink as rows run out.
	GuidedSchedule = parallel.Guided
	// ParseSchedule parses "static", "guided", "dynamic" or "dynamic(<chunk>)".
	ParseSchedule = parallel.ParseSchedule
)

// Options holds the optional parameters for serialization and prediction.
// The zero value is usable once EnsureDefaults has been called.
type Options struct {
	// Logger receives informational messages and warnings. Defaults to
	// DefaultLogger.
	Logger Logger

	// FS is the filesystem used by SerializeFile and DeserializeFile. Defaults
	// to vfs.Default.
	FS vfs.FS

	// Compression is the codec applied to the serialized body. Defaults to
	// NoCompression.
	Compression Compression

	// Checksum is the checksum written to the trailer. Defaults to
	// ChecksumTypeXXHash64. Set DisableChecksum to write no checksum.
	Checksum        ChecksumType
	DisableChecksum bool

	// Parallelism is the number of workers used by a Predictor. Zero or a
	// negative value uses every available processor.
	Parallelism int

	// Schedule controls how rows are distributed across workers. Defaults to
	// StaticSchedule().
	Schedule Schedule

	// Metrics, if set, is updated by every Predictor prediction call.
	Metrics *PredictorMetrics
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	if o.FS == nil {
		o.FS = vfs.Default
	}
	if o.DisableChecksum {
		o.Checksum = ChecksumTypeNone
	} else if o.Checksum == ChecksumTypeNone {
		o.Checksum = ChecksumTypeXXHash64
	}
	return o
}

// Validate verifies that the options are mutually consistent, reporting every
// problem at once.
func (o *Options) Validate() error {
	// Note that we can presume Options.EnsureDefaults has been called, so there
	// is no need to check for zero values.

	var buf strings.Builder
	if o.Compression >= nCompression {
		fmt.Fprintf(&buf, "Compression (%d) must be one of none, snappy, zstd\n", uint8(o.Compression))
	}
	if o.Checksum >= nChecksumType {
		fmt.Fprintf(&buf, "Checksum (%d) must be one of none, xxhash64\n", uint8(o.Checksum))
	}
	if o.Parallelism > parallel.MaxWorkers() {
		fmt.Fprintf(&buf, "Parallelism (%d) must be <= %d\n", o.Parallelism, parallel.MaxWorkers())
	}
	if o.Schedule.Kind == parallel.ScheduleDynamic && o.Schedule.Chunk < 1 {
		fmt.Fprintf(&buf, "Schedule chunk (%d) must be >= 1\n", o.Schedule.Chunk)
	}
	if buf.Len() == 0 {
		return nil
	}
	return errors.Mark(errors.Newf("treelite: invalid options:\n%s", buf.String()), ErrConfig)
}

// threadConfig resolves Parallelism into a thread configuration.
func (o *Options) threadConfig() (parallel.ThreadConfig, error) {
	cfg, err := parallel.Configure(o.Parallelism)
	if err != nil {
		return parallel.ThreadConfig{}, errors.Mark(err, ErrConfig)
	}
	return cfg, nil
}
