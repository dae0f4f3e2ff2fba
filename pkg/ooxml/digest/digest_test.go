package digest

import "testing"

func TestHashString_Deterministic(t *testing.T) {
	t.Parallel()
	a := HashString("the quick brown fox")
	b := HashString("the quick brown fox")
	if a != b {
		t.Error("equal inputs produced different hashes")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a == HashString("the quick brown fix") {
		t.Error("different inputs produced equal hashes")
	}
}

func TestHashBytes_MatchesHashString(t *testing.T) {
	t.Parallel()
	if HashBytes([]byte("abc")) != HashString("abc") {
		t.Error("HashBytes and HashString disagree")
	}
}

func TestContentID(t *testing.T) {
	t.Parallel()
	id := ContentID("drawing payload")
	if len(id) != 16 {
		t.Errorf("ContentID length = %d, want 16", len(id))
	}
	if id != HashString("drawing payload")[:16] {
		t.Error("ContentID is not the digest prefix")
	}
}
