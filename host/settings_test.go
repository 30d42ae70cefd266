// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"reflect"
	"strings"
	"testing"
)

func TestSettingsName(t *testing.T) {
	s := newSettings()

	for key, exp := range map[string]string{
		"reg":            "RegisterFormat",
		"HEXMODE":        "HexMode",
		"maxr":           "MaxRunSteps",
		"nextdisasmaddr": "NextDisasmAddr",
	} {
		name, err := s.Name(key)
		if err != nil || name != exp {
			t.Errorf("%s: name incorrect. exp: %s, got: %s (%v)", key, exp, name, err)
		}
	}

	// ShowEncoding, ShowMachineCode and SharedMemory share the prefix.
	if _, err := s.Name("s"); err == nil {
		t.Error("Ambiguous prefix accepted")
	}
	if _, err := s.Name("nosuch"); err == nil {
		t.Error("Unknown setting accepted")
	}
}

func TestSettingsKind(t *testing.T) {
	s := newSettings()
	tests := map[string]reflect.Kind{
		"hexmode":        reflect.Bool,
		"registerformat": reflect.String,
		"datasize":       reflect.Int,
		"nextmemdump":    reflect.Uint32,
		"nosuch":         reflect.Invalid,
	}
	for key, exp := range tests {
		if k := s.Kind(key); k != exp {
			t.Errorf("%s: kind incorrect. exp: %v, got: %v", key, exp, k)
		}
	}
}

func TestSettingsSet(t *testing.T) {
	s := newSettings()

	if err := s.Set("datasize", int64(0x100)); err != nil || s.DataSize != 0x100 {
		t.Errorf("DataSize not set. got: %d (%v)", s.DataSize, err)
	}
	if err := s.Set("nextdisasmaddr", int64(0x40)); err != nil || s.NextDisasmAddr != 0x40 {
		t.Errorf("NextDisasmAddr not set. got: $%08X (%v)", s.NextDisasmAddr, err)
	}
	if err := s.Set("sharedmemory", false); err != nil || s.SharedMemory {
		t.Errorf("SharedMemory not set (%v)", err)
	}
	if err := s.Set("registerformat", formatUnsigned); err != nil || s.RegisterFormat != formatUnsigned {
		t.Errorf("RegisterFormat not set. got: %s (%v)", s.RegisterFormat, err)
	}

	for _, bad := range []struct {
		key   string
		value any
	}{
		{"datasize", "big"},
		{"hexmode", 1},
		{"registerformat", 5},
	} {
		if err := s.Set(bad.key, bad.value); err == nil || err.Error() != "invalid type" {
			t.Errorf("%s=%v: expected invalid type, got %v", bad.key, bad.value, err)
		}
	}

	err := s.Set("registerformat", "octal")
	if err == nil || err.Error() != "invalid register format 'octal'" {
		t.Errorf("Register format error incorrect. got: %v", err)
	}
	if s.RegisterFormat != formatUnsigned {
		t.Errorf("Rejected register format was stored. got: %s", s.RegisterFormat)
	}
}

func TestSettingsDisplay(t *testing.T) {
	s := newSettings()
	s.NextMemDumpAddr = 0x1234

	var b strings.Builder
	s.Display(&b)

	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	if len(lines) != reflect.TypeOf(settings{}).NumField() {
		t.Fatalf("Line count incorrect. got: %d", len(lines))
	}
	for _, exp := range []string{
		`    HexMode          false`,
		`    RegisterFormat   "hex"`,
		`    NextMemDumpAddr  $00001234`,
		`(max instructions per run (0 = no limit))`,
	} {
		if !strings.Contains(b.String(), exp) {
			t.Errorf("Display missing %q.\ngot:\n%s", exp, b.String())
		}
	}
}

func TestStringToBool(t *testing.T) {
	for s, exp := range map[string]bool{
		"0": false, "false": false, "OFF": false,
		"1": true, "True": true, "on": true,
	} {
		v, err := stringToBool(s)
		if err != nil || v != exp {
			t.Errorf("%s: value incorrect. exp: %v, got: %v (%v)", s, exp, v, err)
		}
	}
	if _, err := stringToBool("yes"); err == nil {
		t.Error("Invalid bool accepted")
	}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		s   []string
		exp string
	}{
		{nil, ""},
		{[]string{"breakpoint"}, "breakpoint"},
		{[]string{"breakpoint add", "breakpoint list"}, "breakpoint "},
		{[]string{"decode", "disassemble"}, "d"},
		{[]string{"run", "quit"}, ""},
	}
	for _, test := range tests {
		if got := commonPrefix(test.s); got != test.exp {
			t.Errorf("%v: prefix incorrect. exp: %q, got: %q", test.s, test.exp, got)
		}
	}
}

func TestAutocomplete(t *testing.T) {
	line, pos, ok := autocomplete("bre", 3, '\t')
	if !ok || line != "breakpoint " || pos != 11 {
		t.Errorf("Completion incorrect. got: %q, %d, %v", line, pos, ok)
	}

	line, pos, ok = autocomplete("breakpoint a 4", 12, '\t')
	if !ok || line != "breakpoint add  4" || pos != 15 {
		t.Errorf("Completion incorrect. got: %q, %d, %v", line, pos, ok)
	}

	if _, _, ok := autocomplete("xyz", 3, '\t'); ok {
		t.Error("Unknown command completed")
	}
	if _, _, ok := autocomplete("bre", 3, 'x'); ok {
		t.Error("Non-tab key completed")
	}
}
