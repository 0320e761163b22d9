package message

import "testing"

func TestNewAssignsIDWhenEmpty(t *testing.T) {
	m := New("", KindText, "a", "b", "c", "", "hi")
	if m.ID == "" {
		t.Fatal("expected non-empty id")
	}
}

func TestNewPreservesSuppliedID(t *testing.T) {
	m := New("fixed-id", KindText, "a", "b", "c", "", "hi")
	if m.ID != "fixed-id" {
		t.Fatalf("expected fixed-id, got %s", m.ID)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	m := New("", KindText, "a", "b", "c", "", "hi")
	m.Set("source_id", "orig_12345")
	m.Set("priority", "high")

	if got := m.Get("source_id"); got != "orig_12345" {
		t.Fatalf("expected orig_12345, got %s", got)
	}
	if !m.Has("priority") {
		t.Fatal("expected has(priority) == true")
	}
	if m.Has("missing") {
		t.Fatal("expected has(missing) == false")
	}
	if got := m.Get("missing"); got != "" {
		t.Fatalf("expected empty string for missing key, got %s", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New("", KindText, "a", "b", "c", "", "hi")
	m.Set("k", "v")

	clone := m.Clone()
	clone.Set("k", "changed")

	if m.Get("k") != "v" {
		t.Fatalf("expected original unaffected by clone mutation, got %s", m.Get("k"))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := New("", KindText, "a", "b", "c", "", "hi")
	m.Set("k", "v")

	data, err := m.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	back, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if back.ID != m.ID || back.Payload != m.Payload || back.Get("k") != "v" {
		t.Fatalf("round trip mismatch: %+v vs %+v", m, back)
	}
}
