package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/moogle/go/internal/models"
	"github.com/mcdev12/moogle/go/internal/quiz/events"
)

func TestSetBalance(t *testing.T) {
	f := newFixture(t)
	f.started(t, "p1")
	rosters := f.out.countPublished(events.EventTypeRosterUpdate)

	require.NoError(t, f.room.SetBalance(hostID, "p1", 750))

	acks := f.out.sentTo(hostID, events.EventTypeBalanceSet)
	require.Len(t, acks, 1)
	assert.Equal(t, events.BalanceSetPayload{PlayerID: "p1", Previous: 0, Balance: 750},
		decode[events.BalanceSetPayload](t, acks[0]))
	assert.Equal(t, rosters+1, f.out.countPublished(events.EventTypeRosterUpdate))
	assert.Equal(t, 750, f.room.Snapshot().Players[0].Balance)
}

func TestSetBalance_Rejections(t *testing.T) {
	f := newFixture(t)
	f.started(t, "p1")

	assert.ErrorIs(t, f.room.SetBalance("p1", "p1", 9999), ErrForbidden)
	assert.ErrorIs(t, f.room.SetBalance(hostID, "p1", -5), ErrInvalidInput)
	assert.ErrorIs(t, f.room.SetBalance(hostID, "p1", models.MaxBalance+1), ErrInvalidInput)
	assert.ErrorIs(t, f.room.SetBalance(hostID, "ghost", 5), ErrUnknownPlayer)
	assert.Zero(t, f.room.Snapshot().Players[0].Balance)
	assert.Empty(t, f.out.sentTo(hostID, events.EventTypeBalanceSet))
}

func TestKick(t *testing.T) {
	f := newFixture(t)
	f.started(t, "p1", "p2")

	assert.ErrorIs(t, f.room.Kick("p2", "p1"), ErrForbidden)
	require.NoError(t, f.room.Kick(hostID, "p1"))

	snap := f.room.Snapshot()
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "p2", snap.Players[0].ID)
	assert.Equal(t, []string{"p1"}, f.out.disconnected)
	assert.ErrorIs(t, f.room.Kick(hostID, "p1"), ErrUnknownPlayer)
	assert.ErrorIs(t, f.room.Kick(hostID, hostID), ErrInvalidInput)
}

func TestSoulSwap(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.room.BindHost(hostID))
	_, err := f.room.AdmitPlayer("a", "Ana", "ana.png")
	require.NoError(t, err)
	_, err = f.room.AdmitPlayer("b", "Bo", "bo.png")
	require.NoError(t, err)
	require.NoError(t, f.room.SetBalance(hostID, "a", 100))
	require.NoError(t, f.room.SetBalance(hostID, "b", 300))

	require.NoError(t, f.room.SoulSwap(hostID, "a", "b"))

	byID := map[string]struct {
		name, avatar string
		balance      int
	}{}
	for _, p := range f.room.Snapshot().Players {
		byID[p.ID] = struct {
			name, avatar string
			balance      int
		}{p.Name, p.Avatar, p.Balance}
	}
	assert.Equal(t, "Bo", byID["a"].name)
	assert.Equal(t, "bo.png", byID["a"].avatar)
	assert.Equal(t, 300, byID["a"].balance)
	assert.Equal(t, "Ana", byID["b"].name)
	assert.Equal(t, 100, byID["b"].balance)

	swapped := f.out.publishedOf(events.EventTypeSoulsSwapped)
	require.Len(t, swapped, 1)
	p := decode[events.SoulsSwappedPayload](t, swapped[0])
	assert.Equal(t, "a", p.PlayerA)
	assert.Equal(t, "b", p.PlayerB)
}

func TestSoulSwap_Rejections(t *testing.T) {
	f := newFixture(t)
	f.started(t, "a", "b")

	assert.ErrorIs(t, f.room.SoulSwap("a", "a", "b"), ErrForbidden)
	assert.ErrorIs(t, f.room.SoulSwap(hostID, "a", "a"), ErrInvalidInput)
	assert.ErrorIs(t, f.room.SoulSwap(hostID, "a", "ghost"), ErrUnknownPlayer)
	assert.Zero(t, f.out.countPublished(events.EventTypeSoulsSwapped))
}

func TestPenalty_IsPrivate(t *testing.T) {
	f := newFixture(t)
	f.started(t, "p1", "p2")

	require.NoError(t, f.room.Penalty(hostID, "p1"))
	assert.Equal(t, 1, f.out.countSent("p1", events.EventTypePenaltyTriggered))
	assert.Zero(t, f.out.countSent("p2", events.EventTypePenaltyTriggered))
	assert.Zero(t, f.out.countPublished(events.EventTypePenaltyTriggered))

	assert.ErrorIs(t, f.room.Penalty("p2", "p1"), ErrForbidden)
	assert.ErrorIs(t, f.room.Penalty(hostID, "ghost"), ErrUnknownPlayer)
}

func TestAdminActions_AfterFinish(t *testing.T) {
	f := newFixture(t)
	f.started(t, "a", "b")
	f.room.End("over")

	assert.ErrorIs(t, f.room.SetBalance(hostID, "a", 1), ErrFinished)
	assert.ErrorIs(t, f.room.SoulSwap(hostID, "a", "b"), ErrFinished)
	assert.ErrorIs(t, f.room.Penalty(hostID, "a"), ErrFinished)
}
