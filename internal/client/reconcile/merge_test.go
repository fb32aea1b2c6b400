package reconcile

import (
	"testing"

	"github.com/dmitrijs2005/soullink/internal/client/tombstones"
	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ignoreUnexported = cmpopts.IgnoreUnexported(models.Message{})

func companion(id string, msgs ...models.Message) models.Companion {
	c := models.Companion{
		ID:          id,
		Name:        "name-" + id,
		Dimensions:  models.PersonaDimensions{Empathy: 50, Rationality: 50, Humor: 50, Intimacy: 50, Creativity: 50},
		ChatHistory: msgs,
	}
	c.Normalize()
	return c
}

func msg(id string, ts int64) models.Message {
	return models.Message{ID: id, Role: models.RoleUser, Content: "text-" + id, Timestamp: ts}
}

func canonicalState() models.State {
	c1 := companion("c1", msg("m1", 1), msg("m2", 2), msg("m3", 2))
	c1.Album = []models.AlbumPhoto{
		{ID: "p2", URL: "u2", Timestamp: 20},
		{ID: "p1", URL: "u1", Timestamp: 10},
	}
	c1.Memories = []models.Memory{{ID: "mem_m1", Content: "core", IsCore: true}}
	c1.ConflictState = models.ConflictState{ConflictLevel: models.ConflictLow, LastCheck: 5}

	return models.State{
		Companions: []models.Companion{c1, companion("c2", msg("x1", 7))},
		Moments: []models.Moment{
			{ID: "mo2", Timestamp: 20, Comments: []models.Comment{}},
			{ID: "mo1", Timestamp: 10, Comments: []models.Comment{{Role: models.RoleUser, Name: "Me", Content: "hi"}}},
		},
		UserProfile:         models.UserIdentity{Name: "旅行者"},
		DeletedCompanionIDs: []string{},
	}
}

func TestMerge_Idempotent(t *testing.T) {
	s := canonicalState()

	got := Merge(s, s, tombstones.NewRegistry())
	if diff := cmp.Diff(s, got, ignoreUnexported); diff != "" {
		t.Fatalf("merge(S,S) != S (-want +got):\n%s", diff)
	}

	again := Merge(got, got, tombstones.NewRegistry())
	assert.Empty(t, cmp.Diff(got, again, ignoreUnexported))
}

func TestMerge_IdempotentFiltersTombstones(t *testing.T) {
	s := canonicalState()

	got := Merge(s, s, tombstones.NewRegistry("c2"))
	require.Len(t, got.Companions, 1)
	assert.Equal(t, "c1", got.Companions[0].ID)
}

func TestMerge_TombstonesWinOverStaleSnapshot(t *testing.T) {
	local := models.State{Companions: []models.Companion{companion("c1")}, DeletedCompanionIDs: []string{"c2"}}
	stale := models.State{Companions: []models.Companion{companion("c1"), companion("c2")}}

	got := local
	for i := 0; i < 3; i++ {
		got = Merge(got, stale, nil)
	}

	require.Len(t, got.Companions, 1)
	assert.Equal(t, "c1", got.Companions[0].ID)
	assert.Equal(t, []string{"c2"}, got.DeletedCompanionIDs)
}

func TestMerge_RemoteTombstonesApplyLocally(t *testing.T) {
	local := models.State{Companions: []models.Companion{companion("c1"), companion("c2")}}
	remote := models.State{Companions: []models.Companion{companion("c1")}, DeletedCompanionIDs: []string{"c2"}}

	got := Merge(local, remote, tombstones.NewRegistry())
	require.Len(t, got.Companions, 1)
	assert.Equal(t, []string{"c2"}, got.DeletedCompanionIDs)
}

func TestMerge_LocalWinsOnCollision(t *testing.T) {
	l := companion("c1", models.Message{ID: "m1", Content: "local", Timestamp: 1})
	l.Name = "local-name"
	l.Dimensions.Humor = 90
	r := companion("c1", models.Message{ID: "m1", Content: "remote", Timestamp: 1})
	r.Name = "remote-name"

	got := MergeCompanion(l, r)
	assert.Equal(t, "local-name", got.Name)
	assert.Equal(t, 90, got.Dimensions.Humor)
	assert.Equal(t, "local", got.ChatHistory[0].Content)
}

func TestMerge_UnionOfHistoriesSortedAscending(t *testing.T) {
	l := companion("c1", msg("m1", 1), msg("m3", 3))
	r := companion("c1", msg("m2", 2), msg("m1", 1), msg("m4", 2))

	got := MergeCompanion(l, r)

	var ids []string
	for _, m := range got.ChatHistory {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m4", "m3"}, ids)
}

func TestMerge_ImageRecovery(t *testing.T) {
	lm := msg("m1", 1)
	rm := msg("m1", 1)
	rm.Image = "data:image/png;base64,AAAA"

	l := companion("c1", lm)
	l.Album = []models.AlbumPhoto{{ID: "p1", URL: "", Timestamp: 1}}
	r := companion("c1", rm)
	r.Album = []models.AlbumPhoto{{ID: "p1", URL: "https://img/p1.jpg", Timestamp: 1}}

	local := models.State{
		Companions: []models.Companion{l},
		Moments:    []models.Moment{{ID: "mo", Content: "local text"}},
	}
	remote := models.State{
		Companions: []models.Companion{r},
		Moments:    []models.Moment{{ID: "mo", Content: "remote text", Image: "data:image/jpeg;base64,BBBB"}},
	}

	got := Merge(local, remote, nil)

	assert.Equal(t, "data:image/png;base64,AAAA", got.Companions[0].ChatHistory[0].Image)
	assert.Equal(t, "https://img/p1.jpg", got.Companions[0].Album[0].URL)
	assert.Equal(t, "local text", got.Moments[0].Content)
	assert.Equal(t, "data:image/jpeg;base64,BBBB", got.Moments[0].Image)
}

func TestMerge_LocalImageIsNotOverwritten(t *testing.T) {
	lm := msg("m1", 1)
	lm.Image = "local-img"
	rm := msg("m1", 1)
	rm.Image = "remote-img"

	got := MergeCompanion(companion("c1", lm), companion("c1", rm))
	assert.Equal(t, "local-img", got.ChatHistory[0].Image)
}

func TestMerge_ConflictStateLaterCheckWins(t *testing.T) {
	l := companion("c1")
	r := companion("c1")

	l.ConflictState = models.ConflictState{IsActive: true, UserNegativeScore: 10, ConflictLevel: models.ConflictHigh, LastCheck: 100}
	r.ConflictState = models.ConflictState{ConflictLevel: models.ConflictLow, LastCheck: 200}
	assert.Equal(t, r.ConflictState, MergeCompanion(l, r).ConflictState)

	r.ConflictState.LastCheck = 50
	assert.Equal(t, l.ConflictState, MergeCompanion(l, r).ConflictState)

	r.ConflictState.LastCheck = 100
	assert.Equal(t, r.ConflictState, MergeCompanion(l, r).ConflictState, "remote wins ties")
}

func TestMerge_MemoriesComeFromLocal(t *testing.T) {
	l := companion("c1")
	l.Memories = []models.Memory{{ID: "a", Content: "local"}}
	r := companion("c1")
	r.Memories = []models.Memory{{ID: "a", Content: "remote"}, {ID: "b", Content: "only remote"}}

	got := MergeCompanion(l, r)
	require.Len(t, got.Memories, 1)
	assert.Equal(t, "local", got.Memories[0].Content)
}

func TestMerge_StaleSnapshotKeepsAnchorRemoved(t *testing.T) {
	local := companion("c1", msg("m1", 1))
	local.Memories = []models.Memory{}

	anchored := msg("m1", 1)
	anchored.IsMemoryAnchored = true
	remote := companion("c1", anchored)
	remote.Memories = []models.Memory{{ID: "mem_m1", Content: "text-m1", Type: models.MemoryText, IsCore: true}}

	got := Merge(
		models.State{Companions: []models.Companion{local}},
		models.State{Companions: []models.Companion{remote}},
		nil,
	)

	require.Len(t, got.Companions, 1)
	c := got.Companions[0]
	require.Len(t, c.ChatHistory, 1)
	assert.False(t, c.ChatHistory[0].IsMemoryAnchored)
	assert.Empty(t, c.Memories)
}

func TestMerge_RemoteOnlyCompanionKeepsMemories(t *testing.T) {
	remote := companion("c9")
	remote.Memories = []models.Memory{{ID: "mem_x", Content: "x", IsCore: true}}

	got := Merge(models.State{}, models.State{Companions: []models.Companion{remote}}, nil)

	require.Len(t, got.Companions, 1)
	assert.Equal(t, remote.Memories, got.Companions[0].Memories)
}

func TestMerge_CompanionOrderLocalThenRemoteOnly(t *testing.T) {
	local := models.State{Companions: []models.Companion{companion("b"), companion("a")}}
	remote := models.State{Companions: []models.Companion{companion("c"), companion("a"), companion("d")}}

	got := Merge(local, remote, nil)

	var ids []string
	for _, c := range got.Companions {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
}

func TestMerge_MomentsNewestFirst(t *testing.T) {
	local := models.State{Moments: []models.Moment{{ID: "a", Timestamp: 1}, {ID: "c", Timestamp: 3}}}
	remote := models.State{Moments: []models.Moment{{ID: "b", Timestamp: 2}}}

	got := Merge(local, remote, nil)

	var ids []string
	for _, m := range got.Moments {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestMerge_DisjointEditsCommute(t *testing.T) {
	base := canonicalState()

	a := base.Clone()
	a.Companions[0].ChatHistory = append(a.Companions[0].ChatHistory, msg("from-a", 30))
	a.Moments = append(a.Moments, models.Moment{ID: "mo-a", Timestamp: 30, Comments: []models.Comment{}})

	b := base.Clone()
	b.Companions[1].ChatHistory = append(b.Companions[1].ChatHistory, msg("from-b", 31))
	b.Companions[0].Album = append(b.Companions[0].Album, models.AlbumPhoto{ID: "p3", URL: "u3", Timestamp: 30})

	ab := Merge(a, b, nil)
	ba := Merge(b, a, nil)

	assert.Empty(t, cmp.Diff(ab, ba, ignoreUnexported))
	assert.Len(t, ab.Companions[0].ChatHistory, 4)
	assert.Len(t, ab.Companions[0].Album, 3)
	assert.Len(t, ab.Companions[1].ChatHistory, 2)
	assert.Len(t, ab.Moments, 3)
}

func TestMerge_InputsUntouched(t *testing.T) {
	local := canonicalState()
	remote := canonicalState()
	remote.Companions[0].ChatHistory = append(remote.Companions[0].ChatHistory, msg("r", 99))
	snapshot := local.Clone()

	got := Merge(local, remote, nil)
	got.Companions[0].ChatHistory[0].Content = "mutated"

	assert.Empty(t, cmp.Diff(snapshot, local, ignoreUnexported))
}

func TestMergeProfile_RemoteOverlaysNonEmpty(t *testing.T) {
	local := models.UserIdentity{Name: "旅行者", Gender: "女", Age: "20", Personality: "好奇且温柔"}
	remote := models.UserIdentity{Name: "Alice", Avatar: "a.png"}

	got := MergeProfile(local, remote)
	assert.Equal(t, models.UserIdentity{Name: "Alice", Avatar: "a.png", Gender: "女", Age: "20", Personality: "好奇且温柔"}, got)
}
