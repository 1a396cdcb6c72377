// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert raw Zmod data to/from text, LCIO
// and plots.
package xcnv // import "github.com/go-lpc/zmod/internal/xcnv"
