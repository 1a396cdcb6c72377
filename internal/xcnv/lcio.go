// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
	"go-hep.org/x/hep/lcio"
)

const (
	// Detector is the name of the detector stored in LCIO files.
	Detector = "ZMOD"

	// RawCollection is the name of the LCIO collection holding raw frames.
	RawCollection = "ZMOD_RAW"
	// SampleCollection is the name of the LCIO collection holding decoded
	// samples.
	SampleCollection = "ZMOD_SAMPLES"

	defaultBlock = 16384
)

// RunInfo describes the acquisition run of a raw stream.
type RunInfo struct {
	Run        int32
	Resolution int
	Config     acq.Config
}

func (info RunInfo) header() lcio.RunHeader {
	cfg := info.Config
	return lcio.RunHeader{
		RunNumber: info.Run,
		Detector:  Detector,
		Descr:     cfg.String(),
		Params: lcio.Params{
			Ints: map[string][]int32{
				"TransferSize": {int32(cfg.TransferSize)},
				"Gain":         {int32(cfg.Gain[0]), int32(cfg.Gain[1])},
				"Coupling":     {int32(cfg.Coupling[0]), int32(cfg.Coupling[1])},
				"Decimation":   {int32(cfg.Decimation)},
				"PacketLength": {int32(cfg.PacketLength)},
				"Resolution":   {int32(info.Resolution)},
			},
		},
	}
}

func runInfoFrom(hdr lcio.RunHeader) (RunInfo, error) {
	get := func(name string, n int) ([]int32, error) {
		vs, ok := hdr.Params.Ints[name]
		if !ok || len(vs) != n {
			return nil, fmt.Errorf("xcnv: invalid run header parameter %q", name)
		}
		return vs, nil
	}

	var (
		info = RunInfo{Run: hdr.RunNumber}
		err  error
		vs   [6][]int32
	)
	for i, name := range []string{
		"TransferSize", "Gain", "Coupling", "Decimation", "PacketLength", "Resolution",
	} {
		n := 1
		if name == "Gain" || name == "Coupling" {
			n = 2
		}
		vs[i], err = get(name, n)
		if err != nil {
			return info, err
		}
	}

	info.Config = acq.Config{
		TransferSize: uint32(vs[0][0]),
		Gain:         [2]acq.Gain{acq.Gain(vs[1][0]), acq.Gain(vs[1][1])},
		Coupling:     [2]acq.Coupling{acq.Coupling(vs[2][0]), acq.Coupling(vs[2][1])},
		Decimation:   uint32(vs[3][0]),
		PacketLength: uint32(vs[4][0]),
	}
	info.Resolution = int(vs[5][0])

	return info, nil
}

// Raw2LCIO converts a raw stream into LCIO events, one event per packet of
// the acquisition.
// Each event holds the raw frames and the decoded samples.
func Raw2LCIO(w *lcio.Writer, s *adc.Stream, info RunInfo, msg *log.Logger) error {
	err := s.Validate()
	if err != nil {
		return fmt.Errorf("xcnv: invalid raw stream: %w", err)
	}

	params, err := adc.NewParams(info.Resolution, info.Config.Gain)
	if err != nil {
		return fmt.Errorf("xcnv: invalid run info: %w", err)
	}

	hdr := info.header()
	err = w.WriteRunHeader(&hdr)
	if err != nil {
		return fmt.Errorf("xcnv: could not write run header: %w", err)
	}

	block := int(info.Config.PacketLength)
	if block == 0 {
		block = defaultBlock
	}

	var (
		dec   = s.Decoder(params)
		frame = make([]byte, adc.FrameSize)
		raw   = &lcio.GenericObject{
			Data: []lcio.GenericObjectData{{I32s: nil}},
		}
		smps = &lcio.GenericObject{
			Data: []lcio.GenericObjectData{{F64s: nil}},
		}
		smp adc.Sample
	)

	for i, beg := 0, 0; beg < s.Len(); i, beg = i+1, beg+block {
		if i%100 == 0 {
			msg.Printf("processing evt %d...", i)
		}

		end := beg + block
		if end > s.Len() {
			end = s.Len()
		}

		var (
			i32s = make([]int32, 0, end-beg)
			f64s = make([]float64, 0, 2*(end-beg))
		)
		for j := beg; j < end; j++ {
			_, err = s.ReadAt(frame, int64(j)*adc.FrameSize)
			if err != nil {
				return fmt.Errorf("xcnv: could not read frame %d: %w", j, err)
			}
			i32s = append(i32s, int32(binary.LittleEndian.Uint32(frame)))

			err = dec.Decode(&smp)
			if err != nil {
				return fmt.Errorf("xcnv: could not decode frame %d: %w", j, err)
			}
			f64s = append(f64s, smp.Ch1, smp.Ch2)
		}

		evt := lcio.Event{
			RunNumber:   info.Run,
			EventNumber: int32(i),
			TimeStamp:   int64(beg),
			Detector:    Detector,
		}
		raw.Data[0].I32s = i32s
		smps.Data[0].F64s = f64s
		evt.Add(RawCollection, raw)
		evt.Add(SampleCollection, smps)

		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("xcnv: could not write event %d: %w", i, err)
		}
	}

	return nil
}

// LCIO2Raw extracts the raw frames stored in LCIO events and writes them
// to w, in order.
func LCIO2Raw(w io.Writer, r *lcio.Reader, freq int, msg *log.Logger) (RunInfo, error) {
	var (
		info RunInfo
		buf  []byte
		i    = 0
	)

	if freq <= 0 {
		freq = 1
	}

	for r.Next() {
		if i == 0 {
			var err error
			info, err = runInfoFrom(r.RunHeader())
			if err != nil {
				return info, err
			}
		}
		if i%freq == 0 {
			msg.Printf("processing evt %d...", i)
		}

		evt := r.Event()
		raw, ok := evt.Get(RawCollection).(*lcio.GenericObject)
		if !ok || len(raw.Data) == 0 {
			return info, fmt.Errorf("xcnv: event %d has no %s collection", i, RawCollection)
		}

		i32s := raw.Data[0].I32s
		buf = buf[:0]
		for _, v := range i32s {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
		}
		_, err := w.Write(buf)
		if err != nil {
			return info, fmt.Errorf("xcnv: could not write raw frames of event %d: %w", i, err)
		}
		i++
	}

	err := r.Err()
	if err != nil && err != io.EOF {
		return info, fmt.Errorf("xcnv: could not read LCIO file: %w", err)
	}

	return info, nil
}
