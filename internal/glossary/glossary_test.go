package glossary

import "testing"

func TestApplyRepairsPhoneticMisses(t *testing.T) {
	t.Parallel()

	g := New([]string{"CRISPR", "qubit", "polymerase"})

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single word miss",
			in:   "the crisper edit was successful",
			want: "the CRISPR edit was successful",
		},
		{
			name: "canonical casing restored",
			in:   "we measured the Qubit decoherence",
			want: "we measured the qubit decoherence",
		},
		{
			name: "trailing punctuation preserved",
			in:   "it depends on the polymerize.",
			want: "it depends on the polymerase.",
		},
		{
			name: "unrelated words untouched",
			in:   "the weather is nice today",
			want: "the weather is nice today",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := g.Apply(tc.in); got != tc.want {
				t.Errorf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestApplyMultiWordTerm(t *testing.T) {
	t.Parallel()

	g := New([]string{"Monte Carlo"})

	got := g.Apply("we ran a monty carlo simulation")
	want := "we ran a Monte Carlo simulation"
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyEmptyGlossaryIsIdentity(t *testing.T) {
	t.Parallel()

	g := New(nil)
	in := "anything at all"
	if got := g.Apply(in); got != in {
		t.Errorf("Apply(%q) = %q, want unchanged", in, got)
	}
}

func TestApplyDoesNotOvercorrect(t *testing.T) {
	t.Parallel()

	// "quit" shares no phonetic ground with "polymerase" and is far from
	// "qubit" in Jaro-Winkler terms only if thresholds hold; verify a common
	// short word survives.
	g := New([]string{"polymerase"})
	in := "please quit the program"
	if got := g.Apply(in); got != in {
		t.Errorf("Apply(%q) = %q, want unchanged", in, got)
	}
}

func TestTermsReturnsCanonicalSpellings(t *testing.T) {
	t.Parallel()

	g := New([]string{" CRISPR ", "", "qubit"})
	got := g.Terms()
	want := []string{"CRISPR", "qubit"}
	if len(got) != len(want) {
		t.Fatalf("Terms() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Terms()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
