// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "encoding/binary"

// The interpreter addresses data memory as a flat little-endian byte
// slice. Callers must keep every access in bounds; an out-of-range access
// panics with a runtime index error.

// InBounds returns true if size bytes starting at addr lie within b.
func InBounds(b []byte, addr uint32, size int) bool {
	return uint64(addr)+uint64(size) <= uint64(len(b))
}

// LoadByte loads a single byte from the address and returns it.
func LoadByte(b []byte, addr uint32) byte {
	return b[addr]
}

// LoadHalf loads a little-endian 16-bit value from the address.
func LoadHalf(b []byte, addr uint32) uint16 {
	return binary.LittleEndian.Uint16(b[addr:])
}

// LoadWord loads a little-endian 32-bit value from the address.
func LoadWord(b []byte, addr uint32) uint32 {
	return binary.LittleEndian.Uint32(b[addr:])
}

// StoreByte stores a byte at the requested address.
func StoreByte(b []byte, addr uint32, v byte) {
	b[addr] = v
}

// StoreHalf stores a little-endian 16-bit value at the address.
func StoreHalf(b []byte, addr uint32, v uint16) {
	binary.LittleEndian.PutUint16(b[addr:], v)
}

// StoreWord stores a little-endian 32-bit value at the address.
func StoreWord(b []byte, addr uint32, v uint32) {
	binary.LittleEndian.PutUint32(b[addr:], v)
}

// Sign-extend the low bits of v below the sign bit 'top'.
func signExtend(v uint32, top uint) uint32 {
	return ((0 - (v >> top)) &^ ((1 << top) - 1)) | v
}
