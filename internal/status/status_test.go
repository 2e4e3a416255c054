package status

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect Status
	}{
		{
			name:   "canonical string untouched",
			input:  "am_rejected",
			expect: AMRejected,
		},
		{
			name:   "mixed case and spaces collapse",
			input:  "Client Shortlisted",
			expect: ClientShortlisted,
		},
		{
			name:   "hyphen separators collapse",
			input:  "sent-to-client",
			expect: SentToClient,
		},
		{
			name:   "hold_revisit alias",
			input:  "hold_revisit",
			expect: AMHold,
		},
		{
			name:   "am_viewed alias",
			input:  "am_viewed",
			expect: SentToAM,
		},
		{
			name:   "client_viewed alias",
			input:  "client viewed",
			expect: SentToClient,
		},
		{
			name:   "interview schedule prefix",
			input:  "Interview-Scheduling",
			expect: InterviewScheduled,
		},
		{
			name:   "interview complete prefix",
			input:  "interview_completed_at",
			expect: InterviewCompleted,
		},
		{
			name:   "unknown passes through cleaned",
			input:  "Phone Screen",
			expect: Status("phone_screen"),
		},
		{
			name:   "empty stays empty",
			input:  "",
			expect: Status(""),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestPriorityLadderIsStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	ladder := All()
	// offer_declined sits outside the ladder.
	ladder = ladder[:len(ladder)-1]

	prev := 0
	for _, s := range ladder {
		p := Priority(s)
		if p <= prev {
			t.Fatalf("priority of %q (%d) is not above its predecessor (%d)", s, p, prev)
		}
		prev = p
	}
}

func TestPriorityFallsBackToZero(t *testing.T) {
	t.Parallel()

	if got := Priority(OfferDeclined); got != 0 {
		t.Fatalf("offer_declined priority: expected 0, got %d", got)
	}
	if got := Priority(Status("phone_screen")); got != 0 {
		t.Fatalf("non-canonical priority: expected 0, got %d", got)
	}
}

func TestIsCanonical(t *testing.T) {
	t.Parallel()

	for _, s := range All() {
		if !IsCanonical(s) {
			t.Fatalf("expected %q to be canonical", s)
		}
	}
	if IsCanonical(Status("phone_screen")) {
		t.Fatalf("did not expect phone_screen to be canonical")
	}
}
