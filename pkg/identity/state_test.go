package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStoreDropsStaleUpdates(t *testing.T) {
	s := NewStateStore()
	old := s.Generation()
	next := s.Advance()

	assert.False(t, s.Update(old, func(st *State) { st.Authenticated = true }))
	assert.False(t, s.Snapshot().Authenticated)

	assert.True(t, s.Update(next, func(st *State) { st.Authenticated = true }))
	st := s.Snapshot()
	assert.True(t, st.Authenticated)
	assert.Equal(t, next, st.Generation)
}

func TestStateStoreApplyIgnoresGeneration(t *testing.T) {
	s := NewStateStore()
	s.Advance()
	s.Apply(func(st *State) { st.LastRoute = "/dashboard" })
	assert.Equal(t, "/dashboard", s.Snapshot().LastRoute)
}

func TestStateStoreInvariants(t *testing.T) {
	s := NewStateStore()
	gen := s.Generation()

	t.Run("CredentialsNeedValidSession", func(t *testing.T) {
		s.Update(gen, func(st *State) {
			st.Session = expiredSession("alice")
			st.Credentials = &Credentials{AccessKeyID: "ASIA"}
		})
		assert.Nil(t, s.Snapshot().Credentials)

		s.Update(gen, func(st *State) {
			st.Session = validSession("alice")
			st.Credentials = &Credentials{AccessKeyID: "ASIA"}
		})
		assert.NotNil(t, s.Snapshot().Credentials)
	})

	t.Run("ChallengeNeedsUser", func(t *testing.T) {
		s.Update(gen, func(st *State) {
			st.ChallengeName = ChallengeCustom
			st.ChallengeParameters = map[string]string{"k": "v"}
		})
		st := s.Snapshot()
		assert.False(t, st.ChallengePending)
		assert.Nil(t, st.ChallengeParameters)
		assert.Empty(t, st.ChallengeName)

		s.update(gen, func(r *record) {
			r.ChallengeName = ChallengeCustom
			r.ChallengeParameters = map[string]string{"k": "v"}
			r.challengeUser = &fakeUser{name: "alice"}
		})
		st = s.Snapshot()
		assert.True(t, st.ChallengePending)
		assert.NotNil(t, s.challengeUser())
	})
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	s := NewStateStore()
	s.update(s.Generation(), func(r *record) {
		r.ChallengeParameters = map[string]string{"k": "v"}
		r.challengeUser = &fakeUser{name: "alice"}
	})

	snap := s.Snapshot()
	snap.ChallengeParameters["k"] = "changed"
	assert.Equal(t, "v", s.Snapshot().ChallengeParameters["k"])
}

func TestStateStoreSubscribe(t *testing.T) {
	s := NewStateStore()
	var got []State
	cancel := s.Subscribe(func(st State) { got = append(got, st) })

	s.Update(s.Generation(), func(st *State) { st.Authenticated = true })
	cancel()
	s.Update(s.Generation(), func(st *State) { st.Authenticated = false })

	require.Len(t, got, 1)
	assert.True(t, got[0].Authenticated)
}

func TestStateViews(t *testing.T) {
	st := State{
		Authenticated:       true,
		Session:             validSession("alice"),
		ChallengeName:       ChallengeCustom,
		ChallengeParameters: map[string]string{"k": "v"},
		ChallengePending:    true,
	}

	sv := st.SessionView()
	assert.True(t, sv.Authenticated)
	assert.Equal(t, "alice", sv.Session.Username)

	av := st.AuthenticationView()
	assert.True(t, av.ChallengePending)
	assert.Equal(t, ChallengeCustom, av.ChallengeName)
}
