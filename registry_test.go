package main

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, groups int) *Registry {
	t.Helper()
	return NewRegistry(groups, rand.New(rand.NewSource(42)))
}

func assertUniqueRoles(t *testing.T, r *Registry, groupID int) {
	t.Helper()
	seen := map[Role]bool{}
	for _, entry := range r.Roster(groupID) {
		require.Falsef(t, seen[entry.Role], "role %s assigned twice in group %d", entry.Role, groupID)
		seen[entry.Role] = true
	}
}

func TestRoleUniquenessAcrossInterleavings(t *testing.T) {
	r := newTestRegistry(t, 1)
	rng := rand.New(rand.NewSource(7))

	live := map[string]bool{}
	next := 0

	for i := 0; i < 200; i++ {
		if rng.Intn(2) == 0 && len(live) > 0 {
			for id := range live {
				r.RemoveParticipant(id)
				delete(live, id)
				break
			}
		} else {
			id := fmt.Sprintf("conn-%d", next)
			next++
			if _, err := r.AddParticipant(1, id, "player"); err == nil {
				live[id] = true
			} else {
				require.ErrorIs(t, err, errNoRoleAvailable)
			}
		}
		assertUniqueRoles(t, r, 1)
	}
}

func TestAddParticipantFullGroup(t *testing.T) {
	r := newTestRegistry(t, 1)

	for i := 0; i < len(rolePool); i++ {
		_, err := r.AddParticipant(1, fmt.Sprintf("conn-%d", i), "player")
		require.NoError(t, err)
	}

	_, err := r.AddParticipant(1, "conn-overflow", "latecomer")
	require.ErrorIs(t, err, errNoRoleAvailable)

	// Failed registration leaves the group untouched.
	assert.Len(t, r.Roster(1), len(rolePool))
	assert.Nil(t, r.FindParticipant("conn-overflow"))
}

func TestAddParticipantInvalidGroup(t *testing.T) {
	r := newTestRegistry(t, 2)

	for _, groupID := range []int{0, -1, 3, 11} {
		_, err := r.AddParticipant(groupID, "conn-a", "player")
		require.ErrorIsf(t, err, errInvalidGroup, "group %d", groupID)
	}
	assert.Nil(t, r.FindParticipant("conn-a"))
}

func TestAddParticipantTwice(t *testing.T) {
	r := newTestRegistry(t, 2)

	_, err := r.AddParticipant(1, "conn-a", "ada")
	require.NoError(t, err)

	_, err = r.AddParticipant(2, "conn-a", "ada")
	require.ErrorIs(t, err, errAlreadyRegistered)
}

func TestRemoveFreesRoleForReassignment(t *testing.T) {
	r := newTestRegistry(t, 1)

	for i := 0; i < len(rolePool); i++ {
		_, err := r.AddParticipant(1, fmt.Sprintf("conn-%d", i), "player")
		require.NoError(t, err)
	}

	gone := r.RemoveParticipant("conn-3")
	require.NotNil(t, gone)

	// The only free role is the departed one, so the newcomer must get it.
	p, err := r.AddParticipant(1, "conn-new", "newcomer")
	require.NoError(t, err)
	assert.Equal(t, gone.Role, p.Role)
}

func TestRemoveParticipantAbsent(t *testing.T) {
	r := newTestRegistry(t, 1)
	assert.Nil(t, r.RemoveParticipant("never-registered"))
}

func TestSetGroupCountClamps(t *testing.T) {
	r := newTestRegistry(t, 1)

	count, _ := r.SetGroupCount(0)
	assert.Equal(t, 1, count)

	count, _ = r.SetGroupCount(15)
	assert.Equal(t, MaxGroups, count)
	assert.Equal(t, MaxGroups, r.GroupCount())

	count, _ = r.SetGroupCount(-3)
	assert.Equal(t, 1, count)
}

func TestSetGroupCountDropsRemovedGroups(t *testing.T) {
	r := newTestRegistry(t, 3)

	_, err := r.AddParticipant(3, "conn-a", "ada")
	require.NoError(t, err)
	_, err = r.AddParticipant(1, "conn-b", "ben")
	require.NoError(t, err)

	count, dropped := r.SetGroupCount(1)
	assert.Equal(t, 1, count)

	require.Len(t, dropped, 1)
	assert.Equal(t, "conn-a", dropped[0].ID)

	assert.Nil(t, r.FindParticipant("conn-a"))
	assert.NotNil(t, r.FindParticipant("conn-b"))
}

func TestSetGroupCountIdempotentGroups(t *testing.T) {
	r := newTestRegistry(t, 2)

	_, err := r.AddParticipant(2, "conn-a", "ada")
	require.NoError(t, err)

	// Re-asserting the same count must not recreate (and so empty) group 2.
	_, dropped := r.SetGroupCount(2)
	assert.Empty(t, dropped)
	assert.NotNil(t, r.FindParticipant("conn-a"))
}

func TestDeterministicAssignmentWithSeededSource(t *testing.T) {
	a := NewRegistry(1, rand.New(rand.NewSource(99)))
	b := NewRegistry(1, rand.New(rand.NewSource(99)))

	for i := 0; i < len(rolePool); i++ {
		id := fmt.Sprintf("conn-%d", i)
		pa, err := a.AddParticipant(1, id, "player")
		require.NoError(t, err)
		pb, err := b.AddParticipant(1, id, "player")
		require.NoError(t, err)
		assert.Equal(t, pa.Role, pb.Role)
	}
}

func TestFindByRole(t *testing.T) {
	r := newTestRegistry(t, 2)

	p, err := r.AddParticipant(1, "conn-a", "ada")
	require.NoError(t, err)

	found := r.FindByRole(1, p.Role)
	require.NotNil(t, found)
	assert.Equal(t, "conn-a", found.ID)

	// Same role in another group is a different (absent) participant.
	assert.Nil(t, r.FindByRole(2, p.Role))
	assert.Nil(t, r.FindByRole(1, "nonexistent"))
}

func TestRosterInsertionOrder(t *testing.T) {
	r := newTestRegistry(t, 1)

	names := []string{"ada", "ben", "cleo"}
	for i, name := range names {
		_, err := r.AddParticipant(1, fmt.Sprintf("conn-%d", i), name)
		require.NoError(t, err)
	}

	roster := r.Roster(1)
	require.Len(t, roster, 3)
	for i, entry := range roster {
		assert.Equal(t, names[i], entry.Name)
	}

	r.RemoveParticipant("conn-1")
	roster = r.Roster(1)
	require.Len(t, roster, 2)
	assert.Equal(t, "ada", roster[0].Name)
	assert.Equal(t, "cleo", roster[1].Name)
}

func TestAvailableRolesPoolOrder(t *testing.T) {
	r := newTestRegistry(t, 1)

	assert.Equal(t, rolePool, r.AvailableRoles(1))

	p, err := r.AddParticipant(1, "conn-a", "ada")
	require.NoError(t, err)

	avail := r.AvailableRoles(1)
	assert.Len(t, avail, len(rolePool)-1)
	assert.NotContains(t, avail, p.Role)

	assert.Nil(t, r.AvailableRoles(99))
}
