// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"fmt"
	"time"

	"github.com/go-lpc/zmod/acq"
)

// Preset is a named acquisition configuration.
type Preset struct {
	Name       string
	Config     acq.Config
	Resolution int
	Created    time.Time
}

func (p *Preset) setChannels(gain, cpl [2]string) error {
	for i := range gain {
		g, err := acq.ParseGain(gain[i])
		if err != nil {
			return err
		}
		p.Config.Gain[i] = g

		c, err := acq.ParseCoupling(cpl[i])
		if err != nil {
			return err
		}
		p.Config.Coupling[i] = c
	}
	return nil
}

// Validate checks the preset describes a valid acquisition.
func (p Preset) Validate() error {
	switch p.Resolution {
	case 10, 12, 14:
	default:
		return fmt.Errorf("conddb: preset %q has invalid resolution %d", p.Name, p.Resolution)
	}

	err := p.Config.Validate()
	if err != nil {
		return fmt.Errorf("conddb: preset %q is invalid: %w", p.Name, err)
	}
	return nil
}
