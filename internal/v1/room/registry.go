package room

// userRegistry tracks which sessions of which users are present in a room.
//
// A user can be connected through several sessions at once, so membership is
// counted per session and the unique-user view is derived: a user is "in the
// room" while at least one of their sessions is.
type userRegistry struct {
	sessions map[string]map[string]struct{} // user id -> set of session ids
}

func newUserRegistry() *userRegistry {
	return &userRegistry{sessions: make(map[string]map[string]struct{})}
}

// insert adds a session to the user's set. Returns true iff this made the
// user present in the room (their set went from empty to non-empty).
func (reg *userRegistry) insert(sau SessionAndUser) bool {
	set, ok := reg.sessions[sau.UserID]
	if !ok {
		set = make(map[string]struct{})
		reg.sessions[sau.UserID] = set
	}
	set[sau.SessionID] = struct{}{}

	return len(set) == 1
}

// remove drops a session from the user's set. Returns true iff this removed
// the user's last session; the user is then discarded entirely. Removing a
// session that was never inserted has no effect and returns false.
func (reg *userRegistry) remove(sau SessionAndUser) bool {
	set, ok := reg.sessions[sau.UserID]
	if !ok {
		return false
	}
	if _, present := set[sau.SessionID]; !present {
		return false
	}

	delete(set, sau.SessionID)
	if len(set) == 0 {
		delete(reg.sessions, sau.UserID)
		return true
	}
	return false
}

// uniqueUserIDs returns a snapshot of the users currently present, in
// unspecified order.
func (reg *userRegistry) uniqueUserIDs() []string {
	ids := make([]string, 0, len(reg.sessions))
	for id := range reg.sessions {
		ids = append(ids, id)
	}
	return ids
}
