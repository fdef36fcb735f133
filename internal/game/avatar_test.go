package game

import "testing"

func TestAssignRandomAvatarPicksFromPool(t *testing.T) {
	known := make(map[string]bool, len(avatars))
	for _, a := range avatars {
		known[a] = true
	}
	for i := 0; i < 50; i++ {
		if a := AssignRandomAvatar(); !known[a] {
			t.Fatalf("unknown avatar %q", a)
		}
	}
}
