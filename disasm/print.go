// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import "strconv"

var hex = "0123456789ABCDEF"

// AppendHex appends the low 'digits' hexadecimal digits of v, upper case
// and zero padded, to dst.
func AppendHex(dst []byte, v uint32, digits int) []byte {
	for i := digits - 1; i >= 0; i-- {
		dst = append(dst, hex[(v>>(uint(i)*4))&0xf])
	}
	return dst
}

// AppendSigned appends the decimal form of v to dst.
func AppendSigned(dst []byte, v int32) []byte {
	return strconv.AppendInt(dst, int64(v), 10)
}

// AppendUnsigned appends the decimal form of v to dst.
func AppendUnsigned(dst []byte, v uint32) []byte {
	return strconv.AppendUint(dst, uint64(v), 10)
}
