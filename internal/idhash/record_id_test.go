package idhash

import "testing"

func TestComputeRecordID_Deterministic(t *testing.T) {
	a := ComputeRecordID("sig-1", "EURUSD", 1700000000000)
	b := ComputeRecordID("sig-1", "EURUSD", 1700000000000)

	if a != b {
		t.Errorf("same inputs produced different ids: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char hex id, got %d chars", len(a))
	}
}

func TestComputeRecordID_DistinctInputs(t *testing.T) {
	base := ComputeRecordID("sig-1", "EURUSD", 1700000000000)

	variants := []string{
		ComputeRecordID("sig-2", "EURUSD", 1700000000000),
		ComputeRecordID("sig-1", "GBPUSD", 1700000000000),
		ComputeRecordID("sig-1", "EURUSD", 1700000000001),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base id", i)
		}
	}
}

func TestComputeRecordID_SeparatorAmbiguity(t *testing.T) {
	// "a|b" + "c" must not collide with "a" + "b|c".
	a := ComputeRecordID("a|b", "c", 1)
	b := ComputeRecordID("a", "b|c", 1)
	if a == b {
		t.Error("field separator ambiguity caused a collision")
	}
}
