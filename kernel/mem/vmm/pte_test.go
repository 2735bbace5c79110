package vmm

import (
	"testing"

	"kfs/kernel/mem/pmm"
)

func TestPageTableEntryFlags(t *testing.T) {
	var e pageTableEntry

	if e.HasFlags(FlagPresent) {
		t.Fatal("expected zero-value entry to have no flags set")
	}

	e.SetFlags(FlagPresent | FlagRW)
	if !e.HasFlags(FlagPresent) || !e.HasFlags(FlagRW) {
		t.Fatal("expected Present and RW flags to be set")
	}
	if e.HasFlags(FlagUser) {
		t.Fatal("did not expect User flag to be set")
	}

	e.ClearFlags(FlagRW)
	if e.HasFlags(FlagRW) {
		t.Fatal("expected RW flag to be cleared")
	}
	if !e.HasFlags(FlagPresent) {
		t.Fatal("expected Present flag to survive ClearFlags(FlagRW)")
	}
}

func TestPageTableEntryFrame(t *testing.T) {
	var e pageTableEntry

	e.SetFlags(FlagPresent | FlagRW)
	e.SetFrame(pmm.Frame(0x123))

	if got := e.Frame(); got != pmm.Frame(0x123) {
		t.Fatalf("expected frame 0x123; got 0x%x", got)
	}
	if !e.HasFlags(FlagPresent) || !e.HasFlags(FlagRW) {
		t.Fatal("expected SetFrame to preserve existing flags")
	}

	e.SetFrame(pmm.Frame(0x456))
	if got := e.Frame(); got != pmm.Frame(0x456) {
		t.Fatalf("expected frame to be overwritten to 0x456; got 0x%x", got)
	}
}

func TestPdIndexPtIndex(t *testing.T) {
	cases := []struct {
		addr   uintptr
		wantPD uint32
		wantPT uint32
	}{
		{0x00000000, 0, 0},
		{0xC0000000, 0x300, 0},
		{0xC0401000, 0x301, 1},
		{0xFFFFF000, 0x3FF, 0x3FF},
	}

	for _, c := range cases {
		if got := pdIndex(c.addr); got != c.wantPD {
			t.Errorf("pdIndex(0x%x): expected 0x%x; got 0x%x", c.addr, c.wantPD, got)
		}
		if got := ptIndex(c.addr); got != c.wantPT {
			t.Errorf("ptIndex(0x%x): expected 0x%x; got 0x%x", c.addr, c.wantPT, got)
		}
	}
}
