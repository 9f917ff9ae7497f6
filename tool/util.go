// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/adamreeve/treelite"
	"github.com/cockroachdb/errors"
)

var stdout = io.Writer(os.Stdout)
var stderr = io.Writer(os.Stderr)
var osExit = os.Exit

// compressionFlag adapts treelite.Compression to pflag.Value.
type compressionFlag treelite.Compression

func (c *compressionFlag) String() string {
	return treelite.Compression(*c).String()
}

func (c *compressionFlag) Type() string {
	return "compression"
}

func (c *compressionFlag) Set(v string) error {
	parsed, err := treelite.ParseCompression(v)
	if err != nil {
		return err
	}
	*c = compressionFlag(parsed)
	return nil
}

// scheduleFlag adapts treelite.Schedule to pflag.Value.
type scheduleFlag treelite.Schedule

func (s *scheduleFlag) String() string {
	return treelite.Schedule(*s).String()
}

func (s *scheduleFlag) Type() string {
	return "schedule"
}

func (s *scheduleFlag) Set(v string) error {
	parsed, err := treelite.ParseSchedule(v)
	if err != nil {
		return err
	}
	*s = scheduleFlag(parsed)
	return nil
}

// readCSV reads rows of feature values. An empty field, "nan" or "?" is a
// missing value. Rows may be shorter than numFeature; the missing trailing
// features are NaN.
func readCSV(r io.Reader, numFeature int, header bool) (treelite.Rows, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if header && len(records) > 0 {
		records = records[1:]
	}
	rows := make(treelite.Rows, len(records))
	for i, rec := range records {
		if len(rec) > numFeature {
			return nil, errors.Newf("row %d has %d values, model has %d features", i, len(rec), numFeature)
		}
		row := make([]float64, numFeature)
		for j := range row {
			row[j] = math.NaN()
		}
		for j, field := range rec {
			field = strings.TrimSpace(field)
			switch strings.ToLower(field) {
			case "", "nan", "?":
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d, column %d", i, j)
			}
			row[j] = v
		}
		rows[i] = row
	}
	return rows, nil
}
