package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pulsegrid/realtime/src/connection"
	"github.com/pulsegrid/realtime/src/message"
)

// stubTransport satisfies types.Transport without a real socket.
type stubTransport struct {
	id string
}

func (s *stubTransport) ID() string                   { return s.id }
func (s *stubTransport) Send(_ message.Message) error { return nil }
func (s *stubTransport) Close() error                 { return nil }
func (s *stubTransport) IsOpen() bool                 { return true }

func mustConn(t *testing.T, userID string, roles ...string) connection.Connection {
	t.Helper()
	c, err := connection.New(userID, roles, nil)
	if err != nil {
		t.Fatalf("connection.New: %v", err)
	}
	return c
}

func TestRegisterAndFind(t *testing.T) {
	r := New()
	c := mustConn(t, "u1", "admin")
	tr := &stubTransport{id: c.ID}

	r.Register(c, tr)

	got, ok := r.Find(c.ID)
	if !ok {
		t.Fatal("expected connection to be registered")
	}
	if got.UserID != "u1" {
		t.Errorf("expected u1, got %s", got.UserID)
	}
	if gotTr, ok := r.Transport(c.ID); !ok || gotTr != tr {
		t.Error("expected the registered transport back")
	}
	if r.Count() != 1 {
		t.Errorf("expected count 1, got %d", r.Count())
	}
}

func TestRegisterLimited(t *testing.T) {
	r := New()
	a := mustConn(t, "u1")
	b := mustConn(t, "u2")
	c := mustConn(t, "u3")

	if !r.RegisterLimited(a, &stubTransport{id: a.ID}, 2) {
		t.Fatal("first register should fit under the limit")
	}
	if !r.RegisterLimited(b, &stubTransport{id: b.ID}, 2) {
		t.Fatal("second register should fit under the limit")
	}
	if r.RegisterLimited(c, &stubTransport{id: c.ID}, 2) {
		t.Error("register beyond the limit should be refused")
	}
	if r.Count() != 2 {
		t.Errorf("expected 2 entries, got %d", r.Count())
	}
	if _, ok := r.Find(c.ID); ok {
		t.Error("refused connection must not be registered")
	}

	// Zero means unlimited.
	if !r.RegisterLimited(c, &stubTransport{id: c.ID}, 0) {
		t.Error("limit 0 should never refuse")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := New()
	c := mustConn(t, "u1")
	r.Register(c, &stubTransport{id: c.ID})

	if !r.Unregister(c.ID) {
		t.Error("first unregister should report removal")
	}
	if r.Unregister(c.ID) {
		t.Error("second unregister should be a no-op")
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d", r.Count())
	}
	if _, ok := r.Find(c.ID); ok {
		t.Error("expected connection to be gone")
	}
}

func TestFindByUserAndRole(t *testing.T) {
	r := New()
	a := mustConn(t, "u1", "admin")
	b := mustConn(t, "u1")
	c := mustConn(t, "u2", "admin")
	for _, cn := range []connection.Connection{a, b, c} {
		r.Register(cn, &stubTransport{id: cn.ID})
	}

	if got := r.FindByUser("u1"); len(got) != 2 {
		t.Errorf("expected 2 transports for u1, got %d", len(got))
	}
	if got := r.FindByRole("admin"); len(got) != 2 {
		t.Errorf("expected 2 admin transports, got %d", len(got))
	}
	if got := r.FindByUser("nobody"); len(got) != 0 {
		t.Errorf("expected no transports, got %d", len(got))
	}
	if got := r.All(); len(got) != 3 {
		t.Errorf("expected 3 transports, got %d", len(got))
	}
}

func TestTransportsSkipsUnregistered(t *testing.T) {
	r := New()
	c := mustConn(t, "u1")
	r.Register(c, &stubTransport{id: c.ID})

	got := r.Transports([]string{c.ID, "gone"})
	if len(got) != 1 {
		t.Fatalf("expected 1 transport, got %d", len(got))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New()
	c := mustConn(t, "u1")
	r.Register(c, &stubTransport{id: c.ID})

	snap := r.Snapshot()
	r.Unregister(c.ID)

	if len(snap) != 1 {
		t.Fatal("snapshot should retain the entry taken at read time")
	}
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c, _ := connection.New(fmt.Sprintf("user-%d", n%5), []string{"role"}, nil)
			r.Register(c, &stubTransport{id: c.ID})
			_ = r.Snapshot()
			if n%2 == 0 {
				r.Unregister(c.ID)
				r.Unregister(c.ID)
			}
		}(i)
	}
	wg.Wait()

	if r.Count() != 25 {
		t.Errorf("expected 25 surviving connections, got %d", r.Count())
	}
}
