// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "github.com/cosnicolaou/zstd/internal/zstdformat"

// DefaultMaxWindowSize is the window size ceiling a Decoder enforces
// when WithMaxWindowSize isn't given.
const DefaultMaxWindowSize = zstdformat.DefaultMaxWindowSize
