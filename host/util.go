// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"strings"
)

var boolWords = map[string]bool{
	"0": false, "false": false, "off": false,
	"1": true, "true": true, "on": true,
}

func stringToBool(s string) (bool, error) {
	v, ok := boolWords[strings.ToLower(s)]
	if !ok {
		return false, fmt.Errorf("invalid bool value '%s'", strings.ToLower(s))
	}
	return v, nil
}

// Printable ASCII passes through; anything else shows as a dot.
func printable(b byte) byte {
	if b < ' ' || b > '~' {
		return '.'
	}
	return b
}

// Return the longest prefix shared by every string in s.
func commonPrefix(s []string) string {
	if len(s) == 0 {
		return ""
	}
	prefix := s[0]
	for _, v := range s[1:] {
		n := 0
		for n < len(prefix) && n < len(v) && prefix[n] == v[n] {
			n++
		}
		prefix = prefix[:n]
	}
	return prefix
}
