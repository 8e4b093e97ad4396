//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"testing"
	"time"

	"github.com/markkurossi/rvos/mm"
	"gvisor.dev/gvisor/pkg/hostarch"
)

var recordSizeTests = []struct {
	name string
	v    any
	size int
}{
	{"TimeVal", &TimeVal{}, 16},
	{"TaskInfo", &TaskInfo{}, 2016},
	{"Stat", &Stat{}, 80},
}

func TestRecordSizes(t *testing.T) {
	for idx, test := range recordSizeTests {
		if n := len(Marshal(test.v)); n != test.size {
			t.Errorf("test-%v: %s: size %v, expected %v",
				idx, test.name, n, test.size)
		}
	}
}

func TestTimeVal(t *testing.T) {
	tv := NewTimeVal(3*time.Second + 1500*time.Microsecond)
	if tv.Sec != 3 || tv.Usec != 1500 {
		t.Errorf("TimeVal %+v", tv)
	}
}

// TestMarshalSpanning copies records to user buffers spanning a page
// boundary and reads them back.
func TestMarshalSpanning(t *testing.T) {
	mem := mm.NewMemory(2 << 20)
	ms, err := mm.NewBare(mem)
	if err != nil {
		t.Fatal(err)
	}
	err = ms.InsertFramedArea(0x10000, 0x12000, mm.PermR|mm.PermW|mm.PermU)
	if err != nil {
		t.Fatal(err)
	}
	token := ms.Token()

	info := &TaskInfo{
		Status: Running,
		Time:   12345,
	}
	info.SyscallTimes[SysTaskInfo] = 2
	info.SyscallTimes[SysWrite] = 7

	stat := &Stat{
		Ino:   42,
		Mode:  0o100000,
		Nlink: 2,
		Size:  1024,
	}
	tv := &TimeVal{
		Sec:  1,
		Usec: 999999,
	}

	for idx, v := range []any{info, stat, tv} {
		data := Marshal(v)
		ptr := mm.VirtAddr(0x11000 - len(data)/2)

		// Writes must go through the validated translation.
		bufs, err := mem.TranslatedByteBuffer(token, ptr, uint64(len(data)),
			hostarch.Write)
		if err != nil {
			t.Fatalf("test-%v: %v", idx, err)
		}
		if len(bufs) != 2 {
			t.Errorf("test-%v: %d slices, expected 2", idx, len(bufs))
		}
		mm.NewUserBuffer(bufs).CopyFrom(data)

		back, err := mem.CopyIn(token, ptr, uint64(len(data)))
		if err != nil {
			t.Fatalf("test-%v: %v", idx, err)
		}
		switch orig := v.(type) {
		case *TaskInfo:
			var got TaskInfo
			if err := Unmarshal(back, &got); err != nil {
				t.Fatal(err)
			}
			if got != *orig {
				t.Errorf("test-%v: TaskInfo mismatch", idx)
			}
		case *Stat:
			var got Stat
			if err := Unmarshal(back, &got); err != nil {
				t.Fatal(err)
			}
			if got != *orig {
				t.Errorf("test-%v: Stat %+v != %+v", idx, got, *orig)
			}
		case *TimeVal:
			var got TimeVal
			if err := Unmarshal(back, &got); err != nil {
				t.Fatal(err)
			}
			if got != *orig {
				t.Errorf("test-%v: TimeVal %+v != %+v", idx, got, *orig)
			}
		}
	}
}
