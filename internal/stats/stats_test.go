package stats

import "testing"

func TestActiveUsersTracksAcceptAndClose(t *testing.T) {
	var s Stats

	s.Accept()
	s.Accept()
	s.Accept()
	if got := s.ActiveUsers(); got != 3 {
		t.Fatalf("ActiveUsers() = %d, want 3", got)
	}

	s.Close()
	if got := s.ActiveUsers(); got != 2 {
		t.Fatalf("ActiveUsers() = %d, want 2", got)
	}

	if s.Accepted() != 3 {
		t.Errorf("Accepted() = %d, want 3", s.Accepted())
	}
	if s.Closed() != 1 {
		t.Errorf("Closed() = %d, want 1", s.Closed())
	}
}
