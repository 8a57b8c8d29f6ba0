package main

import "math/rand"

// Participant is one registered connection: an opaque connection ID, the
// display name given at registration, and the role and group it was
// assigned. Role and group never change for the life of the record.
type Participant struct {
	ID    string
	Name  string
	Role  Role
	Group int
}

// RosterEntry is the public view of a participant.
type RosterEntry struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type group struct {
	members map[string]*Participant
	order   []string // connection IDs in registration order, for roster display
}

func newGroup() *group {
	return &group{members: make(map[string]*Participant)}
}

func (g *group) remove(id string) {
	delete(g.members, id)
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Registry owns every group and participant record. It does no locking of
// its own; the hub serializes all access, either through its run loop or
// under its mutex.
type Registry struct {
	groups map[int]*group
	count  int
	rng    *rand.Rand
}

// NewRegistry creates an empty registry holding groups 1..count, with
// count clamped to [1, MaxGroups]. Role assignment draws from rng, so a
// seeded source yields a reproducible assignment sequence.
func NewRegistry(count int, rng *rand.Rand) *Registry {
	r := &Registry{
		groups: make(map[int]*group),
		rng:    rng,
	}
	r.count, _ = r.SetGroupCount(count)
	return r
}

// GroupCount returns the current number of groups.
func (r *Registry) GroupCount() int {
	return r.count
}

// SetGroupCount clamps n to [1, MaxGroups], ensures groups 1..n exist, and
// destroys any group above n. It returns the clamped count along with the
// participants dropped from destroyed groups, so the caller can tell them.
func (r *Registry) SetGroupCount(n int) (int, []*Participant) {
	if n < 1 {
		n = 1
	}
	if n > MaxGroups {
		n = MaxGroups
	}

	var dropped []*Participant
	for id, g := range r.groups {
		if id <= n {
			continue
		}
		for _, connID := range g.order {
			dropped = append(dropped, g.members[connID])
		}
		delete(r.groups, id)
	}

	for id := 1; id <= n; id++ {
		if r.groups[id] == nil {
			r.groups[id] = newGroup()
		}
	}

	r.count = n
	return n, dropped
}

// AvailableRoles returns the alphabet minus the roles currently held in
// groupID, in pool order.
func (r *Registry) AvailableRoles(groupID int) []Role {
	g := r.groups[groupID]
	if g == nil {
		return nil
	}

	taken := make(map[Role]bool, len(g.members))
	for _, p := range g.members {
		taken[p.Role] = true
	}

	avail := make([]Role, 0, len(rolePool))
	for _, role := range rolePool {
		if !taken[role] {
			avail = append(avail, role)
		}
	}
	return avail
}

// AddParticipant registers a connection into groupID under name, assigning
// a role chosen uniformly at random from the group's available roles.
func (r *Registry) AddParticipant(groupID int, connID, name string) (*Participant, error) {
	if groupID < 1 || groupID > r.count {
		return nil, errInvalidGroup
	}
	if r.FindParticipant(connID) != nil {
		return nil, errAlreadyRegistered
	}

	avail := r.AvailableRoles(groupID)
	if len(avail) == 0 {
		return nil, errNoRoleAvailable
	}

	p := &Participant{
		ID:    connID,
		Name:  name,
		Role:  avail[r.rng.Intn(len(avail))],
		Group: groupID,
	}

	g := r.groups[groupID]
	g.members[connID] = p
	g.order = append(g.order, connID)

	return p, nil
}

// RemoveParticipant deletes the record for connID, freeing its role for
// immediate reassignment. It returns the removed participant, or nil if
// the connection was never registered.
func (r *Registry) RemoveParticipant(connID string) *Participant {
	for _, g := range r.groups {
		if p, ok := g.members[connID]; ok {
			g.remove(connID)
			return p
		}
	}
	return nil
}

// FindParticipant returns the record for connID, or nil.
func (r *Registry) FindParticipant(connID string) *Participant {
	for _, g := range r.groups {
		if p, ok := g.members[connID]; ok {
			return p
		}
	}
	return nil
}

// FindByRole returns the participant holding role in groupID, or nil.
// Roles are unique per group, so there is at most one match.
func (r *Registry) FindByRole(groupID int, role Role) *Participant {
	g := r.groups[groupID]
	if g == nil {
		return nil
	}
	for _, p := range g.members {
		if p.Role == role {
			return p
		}
	}
	return nil
}

// Roster lists groupID's participants in registration order.
func (r *Registry) Roster(groupID int) []RosterEntry {
	g := r.groups[groupID]
	if g == nil {
		return nil
	}

	roster := make([]RosterEntry, 0, len(g.order))
	for _, connID := range g.order {
		p := g.members[connID]
		roster = append(roster, RosterEntry{Name: p.Name, Role: p.Role})
	}
	return roster
}

// Members returns groupID's participants in registration order.
func (r *Registry) Members(groupID int) []*Participant {
	g := r.groups[groupID]
	if g == nil {
		return nil
	}

	members := make([]*Participant, 0, len(g.order))
	for _, connID := range g.order {
		members = append(members, g.members[connID])
	}
	return members
}
