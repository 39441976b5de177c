package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_InsertFirstSession(t *testing.T) {
	reg := newUserRegistry()

	isNew := reg.insert(SessionAndUser{SessionID: "s1", UserID: "u1"})
	assert.True(t, isNew)
	assert.ElementsMatch(t, []string{"u1"}, reg.uniqueUserIDs())
}

func TestRegistry_SecondSessionSameUser(t *testing.T) {
	reg := newUserRegistry()
	reg.insert(SessionAndUser{SessionID: "s1", UserID: "u1"})

	isNew := reg.insert(SessionAndUser{SessionID: "s2", UserID: "u1"})
	assert.False(t, isNew)
	assert.ElementsMatch(t, []string{"u1"}, reg.uniqueUserIDs())
}

func TestRegistry_RemoveLastSession(t *testing.T) {
	reg := newUserRegistry()
	reg.insert(SessionAndUser{SessionID: "s1", UserID: "u1"})

	wasLast := reg.remove(SessionAndUser{SessionID: "s1", UserID: "u1"})
	assert.True(t, wasLast)
	assert.Empty(t, reg.uniqueUserIDs())
}

func TestRegistry_RemoveWithRemainingSession(t *testing.T) {
	reg := newUserRegistry()
	reg.insert(SessionAndUser{SessionID: "s1", UserID: "u1"})
	reg.insert(SessionAndUser{SessionID: "s2", UserID: "u1"})

	wasLast := reg.remove(SessionAndUser{SessionID: "s1", UserID: "u1"})
	assert.False(t, wasLast)
	assert.ElementsMatch(t, []string{"u1"}, reg.uniqueUserIDs())

	wasLast = reg.remove(SessionAndUser{SessionID: "s2", UserID: "u1"})
	assert.True(t, wasLast)
	assert.Empty(t, reg.uniqueUserIDs())
}

func TestRegistry_RemoveUnknown(t *testing.T) {
	reg := newUserRegistry()

	assert.False(t, reg.remove(SessionAndUser{SessionID: "s1", UserID: "ghost"}))

	reg.insert(SessionAndUser{SessionID: "s1", UserID: "u1"})
	assert.False(t, reg.remove(SessionAndUser{SessionID: "s9", UserID: "u1"}))
	assert.ElementsMatch(t, []string{"u1"}, reg.uniqueUserIDs())
}

func TestRegistry_BalancedJoinLeaveRestoresState(t *testing.T) {
	reg := newUserRegistry()
	reg.insert(SessionAndUser{SessionID: "s1", UserID: "u1"})
	reg.insert(SessionAndUser{SessionID: "s2", UserID: "u2"})
	before := reg.uniqueUserIDs()

	sau := SessionAndUser{SessionID: "s3", UserID: "u3"}
	reg.insert(sau)
	reg.remove(sau)

	assert.ElementsMatch(t, before, reg.uniqueUserIDs())
}

func TestRegistry_MultipleUsers(t *testing.T) {
	reg := newUserRegistry()
	reg.insert(SessionAndUser{SessionID: "s1", UserID: "u1"})
	reg.insert(SessionAndUser{SessionID: "s2", UserID: "u2"})
	reg.insert(SessionAndUser{SessionID: "s3", UserID: "u3"})

	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, reg.uniqueUserIDs())
}
