//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// The fs-tool is an utility program to create and inspect rvos
// filesystem images. The images can be booted with the rvos -fs
// option.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/markkurossi/rvos/image"
	"github.com/markkurossi/rvos/ramfs"
	"github.com/markkurossi/rvos/user"
	"github.com/markkurossi/tabulate"
)

func main() {
	fsImage := flag.String("fs", "rvos.img", "filesystem image")
	bundled := flag.Bool("bundled", true,
		"include bundled user programs in new images")
	flag.Parse()

	log.SetFlags(0)

	if len(flag.Args()) == 0 {
		log.Fatalf("usage: fs-tool create/import/export/rm/ls [file...]")
	}
	args := flag.Args()[1:]

	var err error
	switch flag.Args()[0] {
	case "create":
		err = create(*fsImage, *bundled, args)
	case "import":
		err = update(*fsImage, func(fsys *ramfs.FS) error {
			return importFiles(fsys, args)
		})
	case "export":
		err = exportFiles(*fsImage, args)
	case "rm":
		err = update(*fsImage, func(fsys *ramfs.FS) error {
			for _, arg := range args {
				if err := fsys.Unlink(arg); err != nil {
					return err
				}
			}
			return nil
		})
	case "ls":
		err = list(*fsImage)
	default:
		log.Fatalf("invalid command: %s", flag.Args()[0])
	}
	if err != nil {
		log.Fatalf("%s: %s", flag.Args()[0], err)
	}
}

func create(path string, bundled bool, files []string) error {
	fsys := ramfs.New()
	if bundled {
		if err := user.Install(fsys); err != nil {
			return err
		}
	}
	if err := importFiles(fsys, files); err != nil {
		return err
	}
	return save(path, fsys)
}

func importFiles(fsys *ramfs.FS, files []string) error {
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		_, err = image.Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		err = fsys.WriteFile(filepath.Base(file), data)
		if err != nil {
			return err
		}
	}
	return nil
}

func exportFiles(path string, files []string) error {
	fsys, err := load(path)
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := fsys.ReadFile(file)
		if err != nil {
			return err
		}
		err = os.WriteFile(file, data, 0o755)
		if err != nil {
			return err
		}
	}
	return nil
}

func list(path string) error {
	fsys, err := load(path)
	if err != nil {
		return err
	}
	tab := tabulate.New(tabulate.Plain)
	tab.Header("Ino").SetAlign(tabulate.MR)
	tab.Header("Links").SetAlign(tabulate.MR)
	tab.Header("Size").SetAlign(tabulate.MR)
	tab.Header("Entry").SetAlign(tabulate.MR)
	tab.Header("Segments").SetAlign(tabulate.ML)
	tab.Header("Name").SetAlign(tabulate.ML)

	for _, name := range fsys.List() {
		inode, err := fsys.Open(name, ramfs.ReadOnly)
		if err != nil {
			return err
		}
		st := inode.Stat()
		data, err := fsys.ReadFile(name)
		if err != nil {
			return err
		}

		row := tab.Row()
		row.Column(fmt.Sprintf("%d", st.Ino))
		row.Column(fmt.Sprintf("%d", st.Nlink))
		row.Column(fmt.Sprintf("%d", st.Size))

		img, err := image.Parse(data)
		if err != nil {
			row.Column("-")
			row.Column("-")
		} else {
			row.Column(fmt.Sprintf("%#x", img.Entry))
			row.Column(fmt.Sprintf("%d", len(img.Segments)))
		}
		row.Column(name)
	}
	tab.Print(os.Stdout)
	return nil
}

func update(path string, f func(fsys *ramfs.FS) error) error {
	fsys, err := load(path)
	if err != nil {
		return err
	}
	if err := f(fsys); err != nil {
		return err
	}
	return save(path, fsys)
}

func load(path string) (*ramfs.FS, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ramfs.Load(f)
}

func save(path string, fsys *ramfs.FS) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fsys.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
