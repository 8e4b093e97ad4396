//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"github.com/markkurossi/rvos/mm"
	"github.com/markkurossi/rvos/ramfs"
	"gvisor.dev/gvisor/pkg/hostarch"
)

func (kern *Kernel) sysOpen(task *Task, sys *syscall) (int64, error) {
	path, err := task.userString(mm.VirtAddr(sys.arg0))
	if err != nil {
		return -1, err
	}
	flags := ramfs.OpenFlag(sys.arg1)
	inode, err := kern.fs.Open(path, flags)
	if err != nil {
		return -1, err
	}
	return int64(task.AllocFD(NewFileFD(inode, flags))), nil
}

func (kern *Kernel) sysClose(task *Task, sys *syscall) (int64, error) {
	err := task.FreeFD(int64(sys.arg0))
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func (kern *Kernel) sysRead(task *Task, sys *syscall) (int64, error) {
	fd, err := task.GetFD(int64(sys.arg0))
	if err != nil {
		return -1, err
	}
	if !fd.Impl.Readable() {
		return -1, EBADF
	}
	buf, err := task.userBuffer(mm.VirtAddr(sys.arg1), sys.arg2,
		hostarch.Write)
	if err != nil {
		return -1, err
	}
	n, err := fd.Impl.Read(buf)
	if err != nil {
		return -1, err
	}
	return int64(n), nil
}

func (kern *Kernel) sysWrite(task *Task, sys *syscall) (int64, error) {
	fd, err := task.GetFD(int64(sys.arg0))
	if err != nil {
		return -1, err
	}
	if !fd.Impl.Writable() {
		return -1, EBADF
	}
	buf, err := task.userBuffer(mm.VirtAddr(sys.arg1), sys.arg2,
		hostarch.Read)
	if err != nil {
		return -1, err
	}
	n, err := fd.Impl.Write(buf)
	if err != nil {
		return -1, err
	}
	return int64(n), nil
}

func (kern *Kernel) sysFstat(task *Task, sys *syscall) (int64, error) {
	fd, err := task.GetFD(int64(sys.arg0))
	if err != nil {
		return -1, err
	}
	stater, ok := fd.Impl.(Stater)
	if !ok {
		return -1, EINVAL
	}
	err = task.copyOut(mm.VirtAddr(sys.arg1), NewStat(stater.Stat()))
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func (kern *Kernel) sysLinkat(task *Task, sys *syscall) (int64, error) {
	oldName, err := task.userString(mm.VirtAddr(sys.arg0))
	if err != nil {
		return -1, err
	}
	newName, err := task.userString(mm.VirtAddr(sys.arg1))
	if err != nil {
		return -1, err
	}
	err = kern.fs.Link(oldName, newName)
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func (kern *Kernel) sysUnlinkat(task *Task, sys *syscall) (int64, error) {
	path, err := task.userString(mm.VirtAddr(sys.arg0))
	if err != nil {
		return -1, err
	}
	err = kern.fs.Unlink(path)
	if err != nil {
		return -1, err
	}
	return 0, nil
}
