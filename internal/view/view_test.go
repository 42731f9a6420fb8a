package view

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/models"
	"github.com/starford/notegate/internal/session"
)

func authed(scope string) session.AuthState {
	tok := (&oauth2.Token{AccessToken: "opaque"}).WithExtra(map[string]any{"scope": scope})
	return session.Authenticated(tok, map[string]any{"access_token": "opaque", "scope": scope})
}

func TestProject_NotesPanelFollowsAuth(t *testing.T) {
	notes := []models.Note{{ID: "1", Title: "a", Content: "b"}}
	cases := []struct {
		name      string
		auth      session.AuthState
		phase     controller.Phase
		showNotes bool
		showLogin bool
	}{
		{"authenticated", authed("notes:read"), controller.PhaseIdle, true, false},
		{"unauthenticated", session.Unauthenticated(), controller.PhaseUnauthenticated, false, true},
		{"indeterminate", session.Indeterminate(), controller.PhaseIndeterminate, false, true},
		{"redirected", session.Unauthenticated(), controller.PhaseRedirected, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Project(controller.Snapshot{Phase: tc.phase, Auth: tc.auth, Notes: notes})
			assert.Equal(t, tc.showNotes, v.ShowNotes)
			assert.Equal(t, tc.showLogin, v.ShowLogin)
			if tc.showNotes {
				assert.Len(t, v.Notes, 1)
			} else {
				assert.Empty(t, v.Notes, "stale notes must not be reachable while signed out")
			}
		})
	}
}

func TestProject_Fields(t *testing.T) {
	snap := controller.Snapshot{
		Phase:   controller.PhaseLoadingNotes,
		Auth:    authed("notes:read notes:write"),
		Notes:   []models.Note{{ID: "7", Title: "t", Content: "c", Owner: "user:alice", CreatedAt: 1700000000}},
		Draft:   models.Draft{Title: "x", Content: "y"},
		Banner:  "boom",
		Pending: 1,
	}

	v := Project(snap)

	assert.Equal(t, "loading_notes", v.Phase)
	assert.Equal(t, "authenticated", v.Session.Status)
	assert.Equal(t, []string{"notes:read", "notes:write"}, v.Session.Scopes)
	assert.Nil(t, v.Session.ExpiresAt)
	assert.True(t, v.Busy)
	assert.Equal(t, "boom", v.Banner)
	assert.Equal(t, Draft{Title: "x", Content: "y"}, v.Draft)
	require.Len(t, v.Notes, 1)
	assert.Equal(t, Note{ID: "7", Title: "t", Content: "c", Owner: "user:alice", CreatedAt: "2023-11-14T22:13:20Z"}, v.Notes[0])
}

func TestProject_RevisionTracksCollection(t *testing.T) {
	base := controller.Snapshot{Phase: controller.PhaseIdle, Auth: authed("")}
	a := base
	a.Notes = []models.Note{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}}
	b := base
	b.Notes = []models.Note{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}}
	c := base
	c.Notes = []models.Note{{ID: "2", Title: "b"}, {ID: "1", Title: "a"}}

	assert.Equal(t, Project(a).Revision, Project(b).Revision)
	assert.NotEqual(t, Project(a).Revision, Project(c).Revision)
	assert.NotEmpty(t, Project(base).Revision)
}

func TestProject_JSONNeverLeaksToken(t *testing.T) {
	v := Project(controller.Snapshot{Phase: controller.PhaseIdle, Auth: authed("notes:read")})

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "opaque")
	assert.Contains(t, string(data), `"notes":[]`)
}
