package directory

import "sort"

// set is one side of the membership relation: the groups of a user or the
// members of a group.
type set map[string]struct{}

func newSet(ids []string) set {
	s := make(set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s set) has(id string) bool {
	_, ok := s[id]
	return ok
}

// sorted returns the ids in s in ascending order, never nil.
func (s set) sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// diff returns the ids in next missing from prev, and the ids in prev missing
// from next, both sorted.
func diff(prev, next set) (added, removed []string) {
	for id := range next {
		if !prev.has(id) {
			added = append(added, id)
		}
	}
	for id := range prev {
		if !next.has(id) {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Diff computes the membership delta between two id lists. Duplicates are
// ignored. Both the user and the group update paths apply this delta to the
// opposite side of the relation.
func Diff(prev, next []string) (added, removed []string) {
	return diff(newSet(prev), newSet(next))
}

// Normalize de-duplicates and sorts ids. The result is never nil.
func Normalize(ids []string) []string {
	return newSet(ids).sorted()
}
