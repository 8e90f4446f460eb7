// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conflate

// pad is cache line padding to prevent false sharing, mirroring
// code.hybscloud.com/conflate/queue's contended-field padding.
type pad [64]byte

// padShort pads out a cache line after an 8-byte field.
type padShort [64 - 8]byte
