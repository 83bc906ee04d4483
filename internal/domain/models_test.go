package domain

import (
	"sort"
	"testing"
)

func intp(v int) *int { return &v }

func TestOutranksOrdersByScoreThenTime(t *testing.T) {
	attempts := []Attempt{
		{ID: 1, Score: 8, TimeTaken: intp(30)},
		{ID: 2, Score: 8, TimeTaken: intp(20)},
		{ID: 3, Score: 9, TimeTaken: intp(999)},
	}
	sort.Slice(attempts, func(i, j int) bool { return Outranks(attempts[i], attempts[j]) })

	got := []int64{attempts[0].ID, attempts[1].ID, attempts[2].ID}
	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestOutranksPutsMissingTimeLast(t *testing.T) {
	timed := Attempt{ID: 5, Score: 4, TimeTaken: intp(500)}
	untimed := Attempt{ID: 1, Score: 4}
	if !Outranks(timed, untimed) {
		t.Fatalf("expected recorded time to beat missing time")
	}
	if Outranks(untimed, timed) {
		t.Fatalf("expected missing time to lose")
	}
}

func TestOutranksFallsBackToID(t *testing.T) {
	a := Attempt{ID: 1, Score: 4, TimeTaken: intp(10)}
	b := Attempt{ID: 2, Score: 4, TimeTaken: intp(10)}
	if !Outranks(a, b) || Outranks(b, a) {
		t.Fatalf("expected lower id first on full tie")
	}
}

func TestDifficultyValid(t *testing.T) {
	for _, d := range []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyMania} {
		if !d.Valid() {
			t.Fatalf("expected %q valid", d)
		}
	}
	if Difficulty("expert").Valid() {
		t.Fatalf("expected unknown difficulty to be invalid")
	}
}
