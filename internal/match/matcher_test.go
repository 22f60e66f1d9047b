package match

import "testing"

func TestStrictModeIsExact(t *testing.T) {
	m := New(ModeStrict, []string{"Sword"})

	if !m.Match("Sword") {
		t.Fatalf("expected exact candidate to match")
	}
	if m.Match("sword") {
		t.Fatalf("expected case difference to miss under strict mode")
	}
}

func TestPermissiveFoldsCaseAndDiacritics(t *testing.T) {
	m := New(ModePermissive, []string{"Épée"})

	if !m.Match("epee") {
		t.Fatalf("expected folded candidate to match")
	}
	if !m.Match("ÉPÉE") {
		t.Fatalf("expected uppercase accented candidate to match")
	}
}

func TestVeryPermissiveDropsHyphensAndPunctuation(t *testing.T) {
	m := New(ModeVeryPermissive, []string{"Épée-Longue"})

	if !m.Match("epee longue") {
		t.Fatalf("expected hyphen-to-space fold to match")
	}
	if !m.Match("epee, longue!") {
		t.Fatalf("expected punctuation to be stripped")
	}
}

func TestEmptyCandidateNeverMatches(t *testing.T) {
	for _, mode := range []Mode{ModeStrict, ModePermissive, ModeVeryPermissive} {
		m := New(mode, []string{"Sword"})
		if m.Match("") {
			t.Fatalf("mode %v: empty candidate must not match", mode)
		}
	}
	// Very-permissive normalization can empty a non-empty candidate too.
	m := New(ModeVeryPermissive, []string{"Sword"})
	if m.Match("!!!") {
		t.Fatalf("candidate that normalizes to empty must not match")
	}
}

func TestModeMonotonicity(t *testing.T) {
	answer := "Épée-Longue"
	candidates := []string{"Épée-Longue", "épée-longue", "epee longue"}

	accepted := func(mode Mode, candidate string) bool {
		return New(mode, []string{answer}).Match(candidate)
	}

	for _, candidate := range candidates {
		if accepted(ModeStrict, candidate) && !accepted(ModePermissive, candidate) {
			t.Fatalf("%q accepted under strict but not permissive", candidate)
		}
		if accepted(ModePermissive, candidate) && !accepted(ModeVeryPermissive, candidate) {
			t.Fatalf("%q accepted under permissive but not very permissive", candidate)
		}
	}
}

func TestMatchAnyLanguageTarget(t *testing.T) {
	m := New(ModePermissive, []string{"Schwert", "Épée"})

	if !m.Match("schwert") {
		t.Fatalf("expected match against first target")
	}
	if !m.Match("epee") {
		t.Fatalf("expected match against second target")
	}
	if m.Match("dagger") {
		t.Fatalf("unexpected match")
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	for _, mode := range []Mode{ModeStrict, ModePermissive, ModeVeryPermissive} {
		m := New(mode, []string{"Épée-Longue"})
		if !m.Match("Épée-Longue") {
			t.Fatalf("mode %v: normalize(x) must always match itself", mode)
		}
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"strict":          ModeStrict,
		"permissive":      ModePermissive,
		"very permissive": ModeVeryPermissive,
		"very-permissive": ModeVeryPermissive,
	}
	for raw, want := range cases {
		got, ok := ParseMode(raw)
		if !ok || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v, want %v", raw, got, ok, want)
		}
	}
	if _, ok := ParseMode("lenient"); ok {
		t.Fatalf("expected unknown mode to be rejected")
	}
}
