//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"encoding/binary"
	"time"

	"github.com/markkurossi/rvos/ramfs"
)

var bo = binary.LittleEndian

// TimeVal is the get_time result record.
type TimeVal struct {
	Sec  uint64
	Usec uint64
}

// NewTimeVal creates a time value from the duration.
func NewTimeVal(d time.Duration) TimeVal {
	return TimeVal{
		Sec:  uint64(d / time.Second),
		Usec: uint64((d % time.Second) / time.Microsecond),
	}
}

// TaskInfo is the task_info result record.
type TaskInfo struct {
	Status       TaskStatus
	SyscallTimes [MaxSyscallNum]uint32
	_            uint32
	Time         uint64
}

// Stat is the fstat result record.
type Stat struct {
	Dev   uint64
	Ino   uint64
	Mode  uint32
	Nlink uint32
	Size  uint64
	_     [6]uint64
}

// NewStat creates a status record from the file status.
func NewStat(st ramfs.Stat) Stat {
	return Stat{
		Ino:   st.Ino,
		Mode:  uint32(st.Mode),
		Nlink: st.Nlink,
		Size:  st.Size,
	}
}

// Marshal encodes the fixed-layout record v in the user ABI byte
// order.
func Marshal(v any) []byte {
	data, err := binary.Append(nil, bo, v)
	if err != nil {
		panic(err)
	}
	return data
}

// Unmarshal decodes the fixed-layout record v from data.
func Unmarshal(data []byte, v any) error {
	_, err := binary.Decode(data, bo, v)
	return err
}
