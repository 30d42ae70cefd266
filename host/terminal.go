// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bufio"
	"io"
	"strings"

	"github.com/beevik/term"
	xterm "golang.org/x/term"
)

// RunTerminal runs commands typed on the terminal attached to fd, with
// line editing, history and tab completion of command names. The terminal
// is in raw input mode only while a line is being read, so Ctrl-C can
// interrupt a running CPU. Ctrl-C or Ctrl-D at the prompt ends the
// session.
func (h *Host) RunTerminal(fd int, rw io.ReadWriter) error {
	t := term.NewTerminal(rw, defaultPrompt)
	if width, height, err := xterm.GetSize(fd); err == nil {
		t.SetSize(width, height)
	}
	t.AutoCompleteCallback = autocomplete

	h.output = bufio.NewWriter(t)
	h.interactive = true
	h.prompting = false

	h.println()
	h.displayPC()

	return h.processCommands(&terminalReader{fd: fd, t: t})
}

type terminalReader struct {
	fd int
	t  *term.Terminal
}

func (r *terminalReader) ReadLine() (string, error) {
	state, err := term.MakeRawInput(r.fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(r.fd, state)
	return r.t.ReadLine()
}

func (r *terminalReader) SetPrompt(prompt string) {
	r.t.SetPrompt(prompt)
}

// Complete the command under the cursor when tab is pressed.
func autocomplete(line string, pos int, key rune) (newLine string, newPos int, ok bool) {
	if key != '\t' {
		return "", 0, false
	}

	candidates := cmds.Autocomplete(line[:pos])
	if len(candidates) == 0 {
		return "", 0, false
	}

	completed := commonPrefix(candidates)
	if len(candidates) == 1 {
		completed += " "
	}
	if len(completed) <= len(strings.TrimLeft(line[:pos], " \t")) {
		return "", 0, false
	}
	return completed + line[pos:], len(completed), true
}
