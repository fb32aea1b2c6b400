// Package reconcile merges the local record with a remote snapshot.
//
// Merge is a pure function. Local edits win on collisions; the remote side
// contributes items the local side lacks, restores payloads that were
// stripped locally to fit the storage quota, and can never resurrect a
// deleted companion.
package reconcile

import (
	"cmp"
	"slices"

	"github.com/dmitrijs2005/soullink/internal/models"
)

// Tombstones answers whether a companion id was deleted.
type Tombstones interface {
	IsDeleted(id string) bool
}

// Merge returns the reconciled state. Neither input is modified.
func Merge(local, remote models.State, tombs Tombstones) models.State {
	deleted := unionIDs(local.DeletedCompanionIDs, remote.DeletedCompanionIDs)
	isDeleted := func(id string) bool {
		if _, ok := deleted[id]; ok {
			return true
		}
		return tombs != nil && tombs.IsDeleted(id)
	}

	return models.State{
		Companions:          mergeCompanions(local.Companions, remote.Companions, isDeleted),
		Moments:             mergeMoments(local.Moments, remote.Moments),
		UserProfile:         MergeProfile(local.UserProfile, remote.UserProfile),
		DeletedCompanionIDs: sortedKeys(deleted),
	}
}

func mergeCompanions(local, remote []models.Companion, isDeleted func(string) bool) []models.Companion {
	remoteByID := make(map[string]models.Companion, len(remote))
	for _, c := range remote {
		remoteByID[c.ID] = c
	}

	out := make([]models.Companion, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local))

	for _, lc := range local {
		if isDeleted(lc.ID) {
			continue
		}
		if _, dup := seen[lc.ID]; dup {
			continue
		}
		seen[lc.ID] = struct{}{}

		if rc, ok := remoteByID[lc.ID]; ok {
			out = append(out, MergeCompanion(lc, rc))
		} else {
			out = append(out, canonical(lc.Clone()))
		}
	}

	for _, rc := range remote {
		if isDeleted(rc.ID) {
			continue
		}
		if _, ok := seen[rc.ID]; ok {
			continue
		}
		seen[rc.ID] = struct{}{}
		out = append(out, canonical(rc.Clone()))
	}

	return out
}

// MergeCompanion merges two copies of the same companion. Scalars and core
// memories come from local; history and album are unioned by id.
func MergeCompanion(local, remote models.Companion) models.Companion {
	// Memories stay local: they follow the anchor flags of the local history,
	// so an older snapshot cannot bring back a removed anchor.
	out := local.Clone()

	out.ChatHistory = unionByID(local.ChatHistory, remote.ChatHistory,
		func(m models.Message) string { return m.ID },
		func(l, r models.Message) models.Message {
			if l.Image == "" && r.Image != "" {
				l.Image = r.Image
			}
			if l.Audio == "" && r.Audio != "" {
				l.Audio = r.Audio
			}
			return l
		})

	out.Album = unionByID(local.Album, remote.Album,
		func(p models.AlbumPhoto) string { return p.ID },
		func(l, r models.AlbumPhoto) models.AlbumPhoto {
			if l.URL == "" && r.URL != "" {
				l.URL = r.URL
			}
			return l
		})

	if remote.ConflictState.LastCheck >= local.ConflictState.LastCheck {
		out.ConflictState = remote.ConflictState
	}

	return canonical(out)
}

// canonical applies the display orders: history oldest first, album newest
// first. Ties keep id order so the result does not depend on input order.
func canonical(c models.Companion) models.Companion {
	c.Normalize()
	slices.SortStableFunc(c.ChatHistory, func(a, b models.Message) int {
		return cmp.Or(cmp.Compare(a.Timestamp, b.Timestamp), cmp.Compare(a.ID, b.ID))
	})
	slices.SortStableFunc(c.Album, func(a, b models.AlbumPhoto) int {
		return cmp.Or(cmp.Compare(b.Timestamp, a.Timestamp), cmp.Compare(a.ID, b.ID))
	})
	return c
}

func mergeMoments(local, remote []models.Moment) []models.Moment {
	out := unionByID(local, remote,
		func(m models.Moment) string { return m.ID },
		func(l, r models.Moment) models.Moment {
			if l.Image == "" && r.Image != "" {
				l.Image = r.Image
			}
			return l
		})
	for i := range out {
		out[i] = out[i].Clone()
		if out[i].Comments == nil {
			out[i].Comments = []models.Comment{}
		}
	}
	slices.SortStableFunc(out, func(a, b models.Moment) int {
		return cmp.Or(cmp.Compare(b.Timestamp, a.Timestamp), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// MergeProfile overlays the non-empty remote profile fields on local.
func MergeProfile(local, remote models.UserIdentity) models.UserIdentity {
	out := local
	overlay := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	overlay(&out.Name, remote.Name)
	overlay(&out.Avatar, remote.Avatar)
	overlay(&out.Gender, remote.Gender)
	overlay(&out.Age, remote.Age)
	overlay(&out.Relationship, remote.Relationship)
	overlay(&out.Personality, remote.Personality)
	return out
}

// unionByID keeps every local item (the first of duplicate ids), fixed up
// by patch against its remote twin, then appends remote-only items.
func unionByID[T any](local, remote []T, id func(T) string, patch func(l, r T) T) []T {
	remoteByID := make(map[string]T, len(remote))
	for _, r := range remote {
		if _, ok := remoteByID[id(r)]; !ok {
			remoteByID[id(r)] = r
		}
	}

	out := make([]T, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local)+len(remote))

	for _, l := range local {
		k := id(l)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if r, ok := remoteByID[k]; ok {
			l = patch(l, r)
		}
		out = append(out, l)
	}
	for _, r := range remote {
		k := id(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func unionIDs(lists ...[]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, l := range lists {
		for _, id := range l {
			if id != "" {
				out[id] = struct{}{}
			}
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
