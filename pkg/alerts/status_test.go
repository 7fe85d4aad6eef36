package alerts

import "testing"

func TestStatusTransitions(t *testing.T) {
	allowed := []struct {
		from Status
		to   Status
	}{
		{StatusNew, StatusAcknowledged},
		{StatusNew, StatusResolved},
		{StatusNew, StatusIgnored},
		{StatusAcknowledged, StatusResolved},
		{StatusAcknowledged, StatusIgnored},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from Status
		to   Status
	}{
		{StatusResolved, StatusAcknowledged},
		{StatusResolved, StatusNew},
		{StatusResolved, StatusIgnored},
		{StatusIgnored, StatusResolved},
		{StatusIgnored, StatusAcknowledged},
		{StatusAcknowledged, StatusNew},
		{StatusNew, StatusNew},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusResolved.Terminal() || !StatusIgnored.Terminal() {
		t.Fatal("resolved and ignored must be terminal")
	}
	if StatusNew.Terminal() || StatusAcknowledged.Terminal() {
		t.Fatal("new and acknowledged must not be terminal")
	}
}

func TestParseStatusLegacyVocabulary(t *testing.T) {
	cases := map[string]Status{
		"new":            StatusNew,
		"Active":         StatusNew,
		"ACKNOWLEDGED":   StatusAcknowledged,
		"ack":            StatusAcknowledged,
		"resolved":       StatusResolved,
		"closed":         StatusResolved,
		"FalsePositive":  StatusIgnored,
		"false_positive": StatusIgnored,
		"dismissed":      StatusIgnored,
		" ignored ":      StatusIgnored,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned error: %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("ParseStatus(%q) = %s, want %s", raw, got, want)
		}
	}

	if _, err := ParseStatus("exploded"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestParseStatusSet(t *testing.T) {
	statuses, err := ParseStatusSet("new,active, resolved")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0] != StatusNew || statuses[1] != StatusNew || statuses[2] != StatusResolved {
		t.Fatalf("unexpected statuses: %v", statuses)
	}

	statuses, err = ParseStatusSet("")
	if err != nil || statuses != nil {
		t.Fatalf("expected empty filter, got %v / %v", statuses, err)
	}

	if _, err := ParseStatusSet("new,bogus"); err == nil {
		t.Fatal("expected error for unknown status in set")
	}
}
