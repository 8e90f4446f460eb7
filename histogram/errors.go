// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package histogram

import "errors"

// ErrInvalidDigits is returned by New when digits is outside [1, 5].
var ErrInvalidDigits = errors.New("histogram: digits must be in [1, 5]")

// ErrInvalidValue is returned by RecordInt64 when v is negative.
var ErrInvalidValue = errors.New("histogram: value must be non-negative")
