package match

import (
	"errors"
	"testing"
	"time"

	"github.com/udisondev/tictac/internal/constants"
	"github.com/udisondev/tictac/internal/player"
	"github.com/udisondev/tictac/internal/testutil"
)

func TestRegistry_Capacity(t *testing.T) {
	reg := NewRegistry(constants.MaxClients)

	sessions := make([]*Session, 0, constants.MaxClients)
	for i := 0; i < constants.MaxClients; i++ {
		s, err := reg.Register(testutil.NewMockConn())
		if err != nil {
			t.Fatalf("register %d failed: %v", i+1, err)
		}
		sessions = append(sessions, s)
	}

	if _, err := reg.Register(testutil.NewMockConn()); !errors.Is(err, ErrRegistryFull) {
		t.Errorf("register %d: err = %v, want ErrRegistryFull", constants.MaxClients+1, err)
	}

	// freeing one slot admits the next connection
	if err := reg.Unregister(sessions[0]); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if _, err := reg.Register(testutil.NewMockConn()); err != nil {
		t.Errorf("register after unregister failed: %v", err)
	}
}

func TestRegistry_UnregisterUnknown(t *testing.T) {
	reg := NewRegistry(4)
	s := newSession(testutil.NewMockConn())
	if err := reg.Unregister(s); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("err = %v, want ErrNotRegistered", err)
	}
}

func TestRegistry_LoginUniqueness(t *testing.T) {
	reg := NewRegistry(4)
	players := player.NewRegistry()

	s1, err := reg.Register(testutil.NewMockConn())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	s2, err := reg.Register(testutil.NewMockConn())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	alice := players.GetOrCreate("alice")
	if err := reg.Login(s1, alice); err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	if err := reg.Login(s2, alice); !errors.Is(err, ErrNameInUse) {
		t.Errorf("second login: err = %v, want ErrNameInUse", err)
	}

	// the name frees up when the holder logs out
	if err := s1.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := reg.Login(s2, alice); err != nil {
		t.Errorf("login after holder's logout failed: %v", err)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry(4)
	s1, _ := reg.Register(testutil.NewMockConn())
	s2, _ := reg.Register(testutil.NewMockConn())

	if err := reg.Login(s1, player.New("alice")); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if got := reg.Lookup("alice"); got != s1 {
		t.Errorf("Lookup(alice) = %v, want s1", got)
	}
	if got := reg.Lookup("bob"); got != nil {
		t.Errorf("Lookup(bob) = %v, want nil", got)
	}

	// a registered but not logged-in session is not discoverable
	_ = s2
	if got := reg.Lookup(""); got != nil {
		t.Errorf("Lookup of empty name matched %v", got)
	}
}

func TestRegistry_AllPlayers(t *testing.T) {
	reg := NewRegistry(4)
	s1, _ := reg.Register(testutil.NewMockConn())
	s2, _ := reg.Register(testutil.NewMockConn())
	s3, _ := reg.Register(testutil.NewMockConn())

	_ = reg.Login(s1, player.New("alice"))
	_ = reg.Login(s3, player.New("carol"))
	_ = s2 // never logs in

	players := reg.AllPlayers()
	if len(players) != 2 {
		t.Fatalf("AllPlayers returned %d players, want 2", len(players))
	}
	if players[0].Name() != "alice" || players[1].Name() != "carol" {
		t.Errorf("snapshot order = [%s %s], want [alice carol]", players[0].Name(), players[1].Name())
	}
}

func TestRegistry_WaitForEmpty(t *testing.T) {
	reg := NewRegistry(4)
	s, _ := reg.Register(testutil.NewMockConn())

	done := make(chan struct{})
	go func() {
		reg.WaitForEmpty()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitForEmpty returned while a session is registered")
	case <-time.After(50 * time.Millisecond):
	}

	if err := reg.Unregister(s); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForEmpty did not return after the last unregister")
	}
}

func TestRegistry_WaitForEmpty_AlreadyEmpty(t *testing.T) {
	reg := NewRegistry(4)

	done := make(chan struct{})
	go func() {
		reg.WaitForEmpty()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForEmpty should return immediately on an empty registry")
	}
}
