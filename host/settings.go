// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

// Register display formats.
const (
	formatHex      = "hex"
	formatUnsigned = "unsigned"
	formatSigned   = "signed"
)

var registerFormats = []string{formatHex, formatUnsigned, formatSigned}

// Host settings, changed with the set command. Each field's doc tag is
// shown in the settings listing.
type settings struct {
	HexMode         bool   `doc:"hexadecimal input mode"`
	ABINames        bool   `doc:"ABI register names in disassembly"`
	ShowEncoding    bool   `doc:"encoding format tag in disassembly"`
	ShowMachineCode bool   `doc:"machine code in disassembly"`
	RegisterFormat  string `doc:"register display: hex, unsigned or signed"`
	DataSize        int    `doc:"data memory size used by the next load"`
	SharedMemory    bool   `doc:"code and data share one memory"`
	MemDumpBytes    int    `doc:"default number of memory bytes to dump"`
	DisasmLines     int    `doc:"default number of lines to disassemble"`
	MaxStepLines    int    `doc:"max lines to disassemble when stepping"`
	MaxRunSteps     int    `doc:"max instructions per run (0 = no limit)"`
	NextDisasmAddr  uint32 `doc:"address of next disassembly"`
	NextMemDumpAddr uint32 `doc:"address of next memory dump"`
}

func newSettings() *settings {
	return &settings{
		ABINames:        true,
		ShowMachineCode: true,
		RegisterFormat:  formatHex,
		DataSize:        0x10000,
		SharedMemory:    true,
		MemDumpBytes:    64,
		DisasmLines:     10,
		MaxStepLines:    20,
	}
}

// settingsFields describes the settings struct, in declaration order, and
// settingsIndex finds a field by any unambiguous lower-case prefix of its
// name.
var (
	settingsFields = reflect.VisibleFields(reflect.TypeFor[settings]())
	settingsIndex  = prefixtree.New[int]()
)

func init() {
	for i, f := range settingsFields {
		settingsIndex.Add(strings.ToLower(f.Name), i)
	}
}

func (s *settings) lookup(key string) (reflect.StructField, reflect.Value, error) {
	i, err := settingsIndex.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.StructField{}, reflect.Value{}, err
	}
	return settingsFields[i], reflect.ValueOf(s).Elem().Field(i), nil
}

// Display writes one line per setting: name, value and description.
func (s *settings) Display(w io.Writer) {
	for _, f := range settingsFields {
		v := reflect.ValueOf(s).Elem().FieldByIndex(f.Index)

		var text string
		switch v.Kind() {
		case reflect.String:
			text = fmt.Sprintf("%q", v.String())
		case reflect.Uint32:
			text = fmt.Sprintf("$%08X", v.Uint())
		default:
			text = fmt.Sprint(v.Interface())
		}

		line := fmt.Sprintf("    %-16s %s", f.Name, text)
		fmt.Fprintf(w, "%-32s (%s)\n", line, f.Tag.Get("doc"))
	}
}

// Name returns the full name of the setting matching key.
func (s *settings) Name(key string) (string, error) {
	f, _, err := s.lookup(key)
	return f.Name, err
}

// Kind returns the kind of the setting matching key, or reflect.Invalid if
// there is no single match.
func (s *settings) Kind(key string) reflect.Kind {
	f, _, err := s.lookup(key)
	if err != nil {
		return reflect.Invalid
	}
	return f.Type.Kind()
}

// Set assigns value to the setting matching key. Strings only go to string
// settings, and other values must convert to the setting's type.
func (s *settings) Set(key string, value any) error {
	f, field, err := s.lookup(key)
	if err != nil {
		return err
	}

	v := reflect.ValueOf(value)
	isString := v.Kind() == reflect.String
	if isString != (f.Type.Kind() == reflect.String) || !v.Type().ConvertibleTo(f.Type) {
		return errors.New("invalid type")
	}
	if f.Name == "RegisterFormat" && !slices.Contains(registerFormats, v.String()) {
		return fmt.Errorf("invalid register format '%s'", v.String())
	}

	field.Set(v.Convert(f.Type))
	return nil
}
