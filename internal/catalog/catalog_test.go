package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAchievements_UniqueNamesAndRegistrationPresent(t *testing.T) {
	list := Achievements()
	require.Len(t, list, 8)

	seen := map[string]bool{}
	for _, a := range list {
		require.NotEmpty(t, a.Name)
		require.NotEmpty(t, a.Category)
		require.False(t, seen[a.Name], "duplicate name %q", a.Name)
		seen[a.Name] = true
	}
	require.True(t, seen[Registration])
}

func TestAchievements_ReturnsCopy(t *testing.T) {
	a := Achievements()
	a[0].Name = "changed"
	require.Equal(t, Registration, Achievements()[0].Name)
}
