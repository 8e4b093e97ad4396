//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/markkurossi/rvos/kernel"
	"github.com/markkurossi/rvos/mm"
	"github.com/markkurossi/rvos/ramfs"
	"github.com/markkurossi/rvos/user"
)

func main() {
	fVerbose := flag.Bool("v", false, "verbose output")
	ktrace := flag.Bool("ktrace", false, "kernel trace")
	fLog := flag.String("log", "", "log level: DEBUG, INFO, WARN, ERROR")
	fMemory := flag.Uint64("memory", mm.DefaultMemorySize>>20,
		"physical memory size in MiB")
	fQuantum := flag.Int("quantum", kernel.DefaultQuantum,
		"scheduling quantum in instructions")
	fInit := flag.String("init", kernel.DefaultInitProc, "init process")
	fImage := flag.String("fs", "", "filesystem image")
	fBatch := flag.Bool("batch", false,
		"read console input from stdin instead of the terminal")
	flag.Parse()

	log.SetFlags(0)

	fsys, err := loadFS(*fImage)
	if err != nil {
		log.Fatal(err)
	}

	code, err := run(*fBatch, &kernel.Params{
		Trace:      *ktrace,
		TraceOut:   os.Stderr,
		Verbose:    *fVerbose,
		LogLevel:   *fLog,
		MemorySize: *fMemory << 20,
		Quantum:    *fQuantum,
		FS:         fsys,
		InitProc:   *fInit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rvos: %s\n", err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(int(code))
}

func run(batch bool, params *kernel.Params) (int32, error) {
	if batch {
		params.Console = newStreamConsole(os.Stdin, os.Stdout)
	} else {
		tc, err := newTTYConsole()
		if err != nil {
			return 0, fmt.Errorf("failed to open terminal: %w", err)
		}
		defer tc.Close()
		params.Console = tc
	}

	kern, err := kernel.New(params)
	if err != nil {
		return 0, err
	}
	err = kern.Boot()
	if err != nil {
		return 0, err
	}
	return kern.Run()
}

func loadFS(image string) (*ramfs.FS, error) {
	if len(image) == 0 {
		fsys := ramfs.New()
		err := user.Install(fsys)
		if err != nil {
			return nil, err
		}
		return fsys, nil
	}
	f, err := os.Open(image)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ramfs.Load(f)
}
