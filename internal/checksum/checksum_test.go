package checksum

import "testing"

func TestSum(t *testing.T) {
	// SHA-256 of the empty string.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs share a digest")
	}
}

func TestKeyed(t *testing.T) {
	data := []byte(`[]`)
	if Keyed(data, true) == Keyed(data, false) {
		t.Error("protection mode must change the digest")
	}
	if Keyed(data, true) != Keyed(data, true) {
		t.Error("Keyed must be deterministic")
	}
}
