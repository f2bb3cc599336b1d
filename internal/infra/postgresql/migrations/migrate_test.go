package migrations

import (
	"strings"
	"testing"
)

func TestAllMigrationsOrderedAndUnique(t *testing.T) {
	t.Parallel()

	all := All()
	if len(all) == 0 {
		t.Fatal("expected migrations")
	}

	seen := make(map[string]struct{}, len(all))
	prev := ""
	for _, m := range all {
		if m.Migrate == nil || m.Rollback == nil {
			t.Fatalf("migration %q missing Migrate or Rollback", m.ID)
		}
		if _, ok := seen[m.ID]; ok {
			t.Fatalf("duplicate migration id %q", m.ID)
		}
		seen[m.ID] = struct{}{}
		if strings.Compare(prev, m.ID) >= 0 {
			t.Fatalf("migration %q not after %q", m.ID, prev)
		}
		prev = m.ID
	}
}
