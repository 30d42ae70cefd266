// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// A span is a slice of a source line that remembers where it came from, so
// errors can point at the offending column.
type span struct {
	row  int    // 1-based source line
	col  int    // 0-based display column of text, tabs expanded
	text string // the slice of interest
	src  string // the whole source line
}

func newSpan(row int, line string) span {
	return span{row: row, text: line, src: line}
}

// Advance past the first n bytes.
func (s span) advance(n int) span {
	col := s.col
	for _, c := range []byte(s.text[:n]) {
		if c == '\t' {
			col = (col/8 + 1) * 8
		} else {
			col++
		}
	}
	return span{row: s.row, col: col, text: s.text[n:], src: s.src}
}

// Keep only the first n bytes.
func (s span) head(n int) span {
	s.text = s.text[:n]
	return s
}

func (s span) empty() bool {
	return s.text == ""
}

func (s span) begins(fn func(c byte) bool) bool {
	return s.text != "" && fn(s.text[0])
}

func (s span) beginsWith(c byte) bool {
	return s.text != "" && s.text[0] == c
}

// Count the leading bytes accepted by fn.
func (s span) count(fn func(c byte) bool) int {
	n := 0
	for n < len(s.text) && fn(s.text[n]) {
		n++
	}
	return n
}

// Index of the first c, or len(text) if there is none.
func (s span) index(c byte) int {
	if i := strings.IndexByte(s.text, c); i >= 0 {
		return i
	}
	return len(s.text)
}

// Split off the leading bytes accepted by fn.
func (s span) split(fn func(c byte) bool) (head, rest span) {
	n := s.count(fn)
	return s.head(n), s.advance(n)
}

func (s span) skipSpace() span {
	return s.advance(s.count(whitespace))
}

func (s span) trimRight() span {
	return s.head(len(strings.TrimRight(s.text, " \t")))
}

func (s span) dropComment() span {
	return s.head(s.count(func(c byte) bool { return !comment(c) })).trimRight()
}

func whitespace(c byte) bool  { return c == ' ' || c == '\t' }
func comment(c byte) bool     { return c == ';' || c == '#' }
func operandChar(c byte) bool { return c != ',' }

func labelStartChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '.'
}

func labelChar(c byte) bool {
	return labelStartChar(c) || c >= '0' && c <= '9'
}
