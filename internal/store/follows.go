package store

// edge is one (follower, followee) pair.
type edge struct {
	follower string
	followee string
}

// followTable is the single source of truth for the follow graph. Both
// directions are read off the same set of pairs, so a user's followers and
// another user's following can never disagree.
type followTable struct {
	edges []edge
	index map[edge]struct{}
}

func newFollowTable() *followTable {
	return &followTable{index: map[edge]struct{}{}}
}

func (t *followTable) add(follower, followee string) bool {
	e := edge{follower: follower, followee: followee}
	if _, ok := t.index[e]; ok {
		return false
	}
	t.index[e] = struct{}{}
	t.edges = append(t.edges, e)
	return true
}

func (t *followTable) remove(follower, followee string) bool {
	e := edge{follower: follower, followee: followee}
	if _, ok := t.index[e]; !ok {
		return false
	}
	delete(t.index, e)
	kept := t.edges[:0]
	for _, cur := range t.edges {
		if cur != e {
			kept = append(kept, cur)
		}
	}
	t.edges = kept
	return true
}

func (t *followTable) has(follower, followee string) bool {
	_, ok := t.index[edge{follower: follower, followee: followee}]
	return ok
}

// followers lists who follows id, oldest edge first.
func (t *followTable) followers(id string) []string {
	out := []string{}
	for _, e := range t.edges {
		if e.followee == id {
			out = append(out, e.follower)
		}
	}
	return out
}

// following lists who id follows, oldest edge first.
func (t *followTable) following(id string) []string {
	out := []string{}
	for _, e := range t.edges {
		if e.follower == id {
			out = append(out, e.followee)
		}
	}
	return out
}

func (t *followTable) len() int {
	return len(t.edges)
}
