//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"bufio"
	"io"
	"unicode/utf8"

	"github.com/markkurossi/rvos/kernel"
	tty "github.com/mattn/go-tty"
)

const ctrlD = 0x04

// reader pumps console input from a blocking source into a channel
// so the kernel can poll it.
type reader struct {
	input chan byte
}

func (r *reader) Getchar() (byte, error) {
	select {
	case ch, ok := <-r.input:
		if !ok {
			return 0, io.EOF
		}
		return ch, nil
	default:
		return 0, kernel.ErrNoInput
	}
}

// streamConsole implements the console over byte streams.
type streamConsole struct {
	reader
	out io.Writer
}

func newStreamConsole(in io.Reader, out io.Writer) *streamConsole {
	c := &streamConsole{
		reader: reader{
			input: make(chan byte, 256),
		},
		out: out,
	}
	go func() {
		r := bufio.NewReader(in)
		for {
			ch, err := r.ReadByte()
			if err != nil {
				close(c.input)
				return
			}
			c.input <- ch
		}
	}()
	return c
}

func (c *streamConsole) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

// ttyConsole implements the console over the controlling terminal.
// The terminal input is unbuffered and unechoed: the user programs
// echo their input. Ctrl-D closes the console input.
type ttyConsole struct {
	reader
	tty *tty.TTY
}

func newTTYConsole() (*ttyConsole, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	c := &ttyConsole{
		reader: reader{
			input: make(chan byte, 256),
		},
		tty: t,
	}
	go func() {
		var buf [utf8.UTFMax]byte
		for {
			r, err := t.ReadRune()
			if err != nil || r == ctrlD {
				close(c.input)
				return
			}
			if r < 0x80 {
				c.input <- byte(r)
				continue
			}
			n := utf8.EncodeRune(buf[:], r)
			for _, b := range buf[:n] {
				c.input <- b
			}
		}
	}()
	return c, nil
}

func (c *ttyConsole) Write(p []byte) (int, error) {
	return c.tty.Output().Write(p)
}

// Close restores the terminal state.
func (c *ttyConsole) Close() error {
	return c.tty.Close()
}
