//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/markkurossi/rvos/kernel"
)

func TestStreamConsole(t *testing.T) {
	var out bytes.Buffer
	c := newStreamConsole(strings.NewReader("ls\n"), &out)

	var input []byte
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ch, err := c.Getchar()
		if err == nil {
			input = append(input, ch)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if !errors.Is(err, kernel.ErrNoInput) {
			t.Fatalf("Getchar failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if string(input) != "ls\n" {
		t.Errorf("input: got %q, expected %q", input, "ls\n")
	}

	_, err := c.Write([]byte("hello\n"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if out.String() != "hello\n" {
		t.Errorf("output: got %q", out.String())
	}
}
