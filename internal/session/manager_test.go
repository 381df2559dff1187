package session

import (
	"errors"
	"testing"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(DefaultConfig(), Deps{})
	a := m.Open()
	b := m.Open()
	if a.ID() == b.ID() {
		t.Fatalf("duplicate session id %q", a.ID())
	}
	if got, err := m.Get(a.ID()); err != nil || got != a {
		t.Fatalf("Get(%q) = %v, %v", a.ID(), got, err)
	}
	if err := m.Close(a.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Get(a.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Close error = %v, want ErrNotFound", err)
	}
	if err := m.Close(a.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Close error = %v, want ErrNotFound", err)
	}
	m.CloseAll()
	if m.Len() != 0 {
		t.Errorf("Len after CloseAll = %d", m.Len())
	}
	if err := b.Reset(); !errors.Is(err, ErrClosed) {
		t.Errorf("Reset on closed session error = %v, want ErrClosed", err)
	}
}
