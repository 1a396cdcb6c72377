// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/go-lpc/zmod/adc"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot decodes all the samples from dec and draws both channels against
// the sample index into fname.
// The image format is inferred from the extension of fname.
// Plot returns the number of samples drawn.
func Plot(fname string, dec *adc.Decoder) (int64, error) {
	var (
		ch1 plotter.XYs
		ch2 plotter.XYs
		smp adc.Sample
	)
	for i := 0; ; i++ {
		err := dec.Decode(&smp)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return int64(len(ch1)), fmt.Errorf("xcnv: could not decode sample %d: %w", i, err)
		}
		x := float64(i)
		ch1 = append(ch1, plotter.XY{X: x, Y: smp.Ch1})
		ch2 = append(ch2, plotter.XY{X: x, Y: smp.Ch2})
	}

	p := hplot.New()
	p.Title.Text = "Zmod Samples"
	p.X.Label.Text = "index"
	p.Y.Label.Text = "value"
	p.Add(hplot.NewGrid())

	// the first word of a frame carries the second channel of the instrument.
	for _, v := range []struct {
		name string
		data plotter.XYs
		col  color.Color
	}{
		{"Channel 2", ch1, color.RGBA{R: 255, A: 255}},
		{"Channel 1", ch2, color.RGBA{B: 255, A: 255}},
	} {
		if len(v.data) == 0 {
			continue
		}
		line, err := plotter.NewLine(v.data)
		if err != nil {
			return int64(len(ch1)), fmt.Errorf("xcnv: could not create %s line: %w", v.name, err)
		}
		line.Color = v.col
		p.Add(line)
		p.Legend.Add(v.name, line)
	}

	err := p.Save(20*vg.Centimeter, 10*vg.Centimeter, fname)
	if err != nil {
		return int64(len(ch1)), fmt.Errorf("xcnv: could not save plot: %w", err)
	}

	return int64(len(ch1)), nil
}
