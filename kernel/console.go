//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrNoInput is returned by Console.Getchar when no input is
// currently available.
var ErrNoInput = errors.New("no console input")

// Console implements the system console.
type Console interface {
	io.Writer

	// Getchar reads an input character without blocking. It returns
	// ErrNoInput if no input is available and io.EOF when the input
	// is closed.
	Getchar() (byte, error)
}

// BufferConsole implements a console over in-memory input and output
// buffers.
type BufferConsole struct {
	m      sync.Mutex
	input  []byte
	closed bool
	output bytes.Buffer
}

// NewBufferConsole creates a console with the input. The console
// input is closed after the input is consumed.
func NewBufferConsole(input string) *BufferConsole {
	return &BufferConsole{
		input:  []byte(input),
		closed: true,
	}
}

// Feed appends input to the console and sets the input closed state.
func (c *BufferConsole) Feed(input string, closed bool) {
	c.m.Lock()
	c.input = append(c.input, input...)
	c.closed = closed
	c.m.Unlock()
}

// Getchar implements Console.Getchar.
func (c *BufferConsole) Getchar() (byte, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if len(c.input) == 0 {
		if c.closed {
			return 0, io.EOF
		}
		return 0, ErrNoInput
	}
	ch := c.input[0]
	c.input = c.input[1:]
	return ch, nil
}

// Write implements io.Writer.
func (c *BufferConsole) Write(p []byte) (int, error) {
	c.m.Lock()
	defer c.m.Unlock()
	return c.output.Write(p)
}

// Output returns the console output.
func (c *BufferConsole) Output() string {
	c.m.Lock()
	defer c.m.Unlock()
	return c.output.String()
}

// Clock implements the machine timer.
type Clock interface {
	// Now returns the time since boot.
	Now() time.Duration
}

// WallClock implements a clock following the host's monotonic time.
type WallClock struct {
	start time.Time
}

// NewWallClock creates a wall clock starting from the current time.
func NewWallClock() *WallClock {
	return &WallClock{
		start: time.Now(),
	}
}

// Now implements Clock.Now.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.start)
}

// StepClock implements a deterministic clock that advances by Step on
// every read.
type StepClock struct {
	now  time.Duration
	Step time.Duration
}

// Now implements Clock.Now.
func (c *StepClock) Now() time.Duration {
	c.now += c.Step
	return c.now
}
