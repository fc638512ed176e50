package player

import (
	"math"
	"sync"
	"testing"

	"github.com/udisondev/tictac/internal/constants"
)

func TestNew_InitialRating(t *testing.T) {
	p := New("alice")
	if p.Name() != "alice" {
		t.Errorf("Name = %q, want alice", p.Name())
	}
	if p.Rating() != constants.InitialRating {
		t.Errorf("Rating = %v, want %v", p.Rating(), constants.InitialRating)
	}
}

func TestPostResult_EqualRatingsWin(t *testing.T) {
	p1 := New("alice")
	p2 := New("bob")

	PostResult(p1, p2, OutcomeFirstWins)

	// At equal ratings the expected score is 0.5, so the winner gains
	// exactly K/2 = 16 and the loser drops by the same amount.
	if got := p1.Rating(); math.Abs(got-1516) > 1e-9 {
		t.Errorf("winner rating = %v, want 1516", got)
	}
	if got := p2.Rating(); math.Abs(got-1484) > 1e-9 {
		t.Errorf("loser rating = %v, want 1484", got)
	}
}

func TestPostResult_Draw(t *testing.T) {
	p1 := New("alice")
	p2 := New("bob")

	PostResult(p1, p2, OutcomeDraw)

	if p1.Rating() != constants.InitialRating || p2.Rating() != constants.InitialRating {
		t.Errorf("equal-rating draw should not move ratings: %v / %v", p1.Rating(), p2.Rating())
	}
}

func TestPostResult_UnderdogDraw(t *testing.T) {
	p1 := New("alice")
	p2 := New("bob")
	PostResult(p1, p2, OutcomeFirstWins) // alice 1516, bob 1484

	r1 := p1.Rating()
	r2 := p2.Rating()
	PostResult(p1, p2, OutcomeDraw)

	// A draw moves points from the higher-rated to the lower-rated player.
	if !(p1.Rating() < r1 && p2.Rating() > r2) {
		t.Errorf("draw should favour the underdog: alice %v→%v, bob %v→%v",
			r1, p1.Rating(), r2, p2.Rating())
	}
}

func TestPostResult_SecondWins(t *testing.T) {
	p1 := New("alice")
	p2 := New("bob")

	PostResult(p1, p2, OutcomeSecondWins)

	if !(p2.Rating() > constants.InitialRating && p1.Rating() < constants.InitialRating) {
		t.Errorf("second win: alice %v, bob %v", p1.Rating(), p2.Rating())
	}
}

func TestPostResult_InvalidOutcome(t *testing.T) {
	p1 := New("alice")
	p2 := New("bob")

	PostResult(p1, p2, Outcome(7))

	if p1.Rating() != constants.InitialRating || p2.Rating() != constants.InitialRating {
		t.Error("invalid outcome should leave ratings untouched")
	}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	reg := NewRegistry()

	alice := reg.GetOrCreate("alice")
	again := reg.GetOrCreate("alice")
	if alice != again {
		t.Error("GetOrCreate should return the same record for the same name")
	}

	bob := reg.GetOrCreate("bob")
	if bob == alice {
		t.Error("distinct names should get distinct records")
	}
	if reg.Count() != 2 {
		t.Errorf("Count = %d, want 2", reg.Count())
	}
}

func TestRegistry_SurvivesRelogin(t *testing.T) {
	reg := NewRegistry()

	first := reg.GetOrCreate("alice")
	PostResult(first, reg.GetOrCreate("bob"), OutcomeFirstWins)
	rating := first.Rating()

	// A later login under the same name sees the earned rating.
	if got := reg.GetOrCreate("alice").Rating(); got != rating {
		t.Errorf("rating after relogin = %v, want %v", got, rating)
	}
}

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	results := make([]*Player, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.GetOrCreate("alice")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent GetOrCreate returned different records")
		}
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}
}
