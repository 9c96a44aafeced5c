package slot

import (
	"net/netip"
	"testing"
)

func TestResetReturnsToRequestLinePhase(t *testing.T) {
	s := New(2048, 1024, 200)
	s.Init(7, netip.MustParseAddrPort("127.0.0.1:1234"), 1)

	s.Phase = PhaseContent
	s.ReadEnd = 100
	s.CheckIndex = 50
	s.KeepAlive = true

	s.Reset()

	if s.Phase != PhaseRequestLine {
		t.Errorf("Phase = %v, want PhaseRequestLine", s.Phase)
	}
	if s.ReadEnd != 0 || s.CheckIndex != 0 || s.LineStart != 0 {
		t.Errorf("indices not zeroed: ReadEnd=%d CheckIndex=%d LineStart=%d", s.ReadEnd, s.CheckIndex, s.LineStart)
	}
	if s.KeepAlive {
		t.Errorf("KeepAlive not cleared on reset")
	}
	if s.Fd != 7 {
		t.Errorf("Fd changed by Reset: got %d, want 7 (fd/peer survive a keep-alive reset)", s.Fd)
	}
}

func TestResetBumpsGeneration(t *testing.T) {
	s := New(64, 64, 32)
	s.Init(1, netip.AddrPort{}, 1)
	gen := s.Generation
	s.Reset()
	if s.Generation == gen {
		t.Errorf("Generation unchanged across Reset")
	}
}

func TestTeardownMarksIdle(t *testing.T) {
	s := New(64, 64, 32)
	s.Init(3, netip.AddrPort{}, 1)
	s.Teardown()
	if s.Live() {
		t.Errorf("slot still Live() after Teardown")
	}
}

func TestPoolAcquireReleaseRoundTrip(t *testing.T) {
	p := NewPool(2, 64, 64, 32)

	s1, ok := p.Acquire(10, netip.AddrPort{})
	if !ok {
		t.Fatal("Acquire failed with slots available")
	}
	s2, ok := p.Acquire(11, netip.AddrPort{})
	if !ok {
		t.Fatal("second Acquire failed")
	}
	if _, ok := p.Acquire(12, netip.AddrPort{}); ok {
		t.Fatal("Acquire succeeded beyond pool capacity")
	}

	if got, ok := p.Lookup(10); !ok || got != s1 {
		t.Errorf("Lookup(10) = %v, %v; want %v, true", got, ok, s1)
	}

	p.Release(s1)
	if _, ok := p.Lookup(10); ok {
		t.Errorf("Lookup(10) still found after Release")
	}

	s3, ok := p.Acquire(13, netip.AddrPort{})
	if !ok {
		t.Fatal("Acquire after Release failed")
	}
	if s3 != s1 {
		t.Errorf("Acquire did not recycle the released slot")
	}
	_ = s2
}
