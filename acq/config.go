// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package acq drives data acquisitions from a Zmod digitizer.
package acq // import "github.com/go-lpc/zmod/acq"

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Gain is the input gain of a Zmod channel.
type Gain uint8

const (
	Low  Gain = 0
	High Gain = 1
)

func (g Gain) String() string {
	switch g {
	case Low:
		return "LOW"
	case High:
		return "HIGH"
	default:
		return fmt.Sprintf("Gain(%d)", uint8(g))
	}
}

// ParseGain parses a LOW/HIGH gain value.
func ParseGain(s string) (Gain, error) {
	switch strings.ToUpper(s) {
	case "LOW":
		return Low, nil
	case "HIGH":
		return High, nil
	default:
		return Low, fmt.Errorf("acq: invalid gain %q", s)
	}
}

// Coupling is the input coupling of a Zmod channel.
type Coupling uint8

const (
	AC Coupling = 0
	DC Coupling = 1
)

func (c Coupling) String() string {
	switch c {
	case AC:
		return "AC"
	case DC:
		return "DC"
	default:
		return fmt.Sprintf("Coupling(%d)", uint8(c))
	}
}

// ParseCoupling parses an AC/DC coupling value.
func ParseCoupling(s string) (Coupling, error) {
	switch strings.ToUpper(s) {
	case "AC":
		return AC, nil
	case "DC":
		return DC, nil
	default:
		return AC, fmt.Errorf("acq: invalid coupling %q", s)
	}
}

// ParseGains parses a pair of gains, such as "LOW,HIGH".
func ParseGains(s string) ([2]Gain, error) {
	var gs [2]Gain
	vs, err := splitPair(s)
	if err != nil {
		return gs, fmt.Errorf("acq: invalid gains %q: %w", s, err)
	}
	for i, v := range vs {
		gs[i], err = ParseGain(v)
		if err != nil {
			return gs, err
		}
	}
	return gs, nil
}

// ParseCouplings parses a pair of couplings, such as "AC,DC".
func ParseCouplings(s string) ([2]Coupling, error) {
	var cs [2]Coupling
	vs, err := splitPair(s)
	if err != nil {
		return cs, fmt.Errorf("acq: invalid couplings %q: %w", s, err)
	}
	for i, v := range vs {
		cs[i], err = ParseCoupling(v)
		if err != nil {
			return cs, err
		}
	}
	return cs, nil
}

func splitPair(s string) ([2]string, error) {
	toks := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(toks) != 2 {
		return [2]string{}, fmt.Errorf("got %d values, want 2", len(toks))
	}
	return [2]string{toks[0], toks[1]}, nil
}

const (
	// ConfigSize is the size in bytes of an encoded configuration frame.
	ConfigSize = 14

	MaxDecimation   = 32767
	MaxPacketLength = 65535
)

// Config describes one acquisition request.
//
// Gain[0] and Coupling[0] configure channel 1, Gain[1] and Coupling[1]
// configure channel 2.
type Config struct {
	TransferSize uint32 // number of samples requested
	Gain         [2]Gain
	Coupling     [2]Coupling
	Decimation   uint32
	PacketLength uint32
}

// Validate checks the ranges of the configuration fields.
// Encoding a configuration does not call Validate.
func (cfg Config) Validate() error {
	for i, g := range cfg.Gain {
		if g > High {
			return fmt.Errorf("acq: invalid gain for channel %d: %v", i+1, g)
		}
	}
	for i, c := range cfg.Coupling {
		if c > DC {
			return fmt.Errorf("acq: invalid coupling for channel %d: %v", i+1, c)
		}
	}
	if cfg.Decimation > MaxDecimation {
		return fmt.Errorf("acq: invalid decimation factor %d (max=%d)", cfg.Decimation, MaxDecimation)
	}
	if cfg.PacketLength > MaxPacketLength {
		return fmt.Errorf("acq: invalid packet length %d (max=%d)", cfg.PacketLength, MaxPacketLength)
	}
	return nil
}

func (cfg Config) String() string {
	return fmt.Sprintf(
		"transfer=%d gain=(%v,%v) coupling=(%v,%v) decimation=%d packet=%d",
		cfg.TransferSize,
		cfg.Gain[0], cfg.Gain[1],
		cfg.Coupling[0], cfg.Coupling[1],
		cfg.Decimation, cfg.PacketLength,
	)
}

// EncodeConfig returns the configuration frame sent to the instrument.
// All integers are big-endian. Bit 0 of the gain and coupling bytes holds
// channel 1, bit 1 holds channel 2.
func EncodeConfig(cfg Config) [ConfigSize]byte {
	var buf [ConfigSize]byte
	binary.BigEndian.PutUint32(buf[0:4], cfg.TransferSize)
	buf[4] = packBits(uint8(cfg.Gain[0]), uint8(cfg.Gain[1]))
	buf[5] = packBits(uint8(cfg.Coupling[0]), uint8(cfg.Coupling[1]))
	binary.BigEndian.PutUint32(buf[6:10], cfg.Decimation)
	binary.BigEndian.PutUint32(buf[10:14], cfg.PacketLength)
	return buf
}

// DecodeConfig decodes a configuration frame, as the instrument does.
func DecodeConfig(p []byte) (Config, error) {
	var cfg Config
	if len(p) < ConfigSize {
		return cfg, fmt.Errorf("acq: short configuration frame (got=%d, want=%d)", len(p), ConfigSize)
	}
	cfg.TransferSize = binary.BigEndian.Uint32(p[0:4])
	cfg.Gain[0] = Gain(p[4] & 1)
	cfg.Gain[1] = Gain((p[4] >> 1) & 1)
	cfg.Coupling[0] = Coupling(p[5] & 1)
	cfg.Coupling[1] = Coupling((p[5] >> 1) & 1)
	cfg.Decimation = binary.BigEndian.Uint32(p[6:10])
	cfg.PacketLength = binary.BigEndian.Uint32(p[10:14])
	return cfg, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (cfg Config) MarshalBinary() ([]byte, error) {
	buf := EncodeConfig(cfg)
	return buf[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (cfg *Config) UnmarshalBinary(p []byte) error {
	v, err := DecodeConfig(p)
	if err != nil {
		return err
	}
	*cfg = v
	return nil
}

func packBits(ch1, ch2 uint8) byte {
	return (ch2&1)<<1 | ch1&1
}
