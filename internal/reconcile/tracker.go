package reconcile

import (
	"sort"

	"repnote/internal/domain"
)

// Snapshot is the expansion and selection state of a content tree, keyed by
// stable identities rather than display positions.
type Snapshot struct {
	Expanded map[int]bool
	Selected *domain.Identity
}

// ExpandedIndices returns the expanded discussion indices in ascending order.
func (s Snapshot) ExpandedIndices() []int {
	out := make([]int, 0, len(s.Expanded))
	for idx, on := range s.Expanded {
		if on {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

// Tracker holds the expansion and selection state across rebuilds.
type Tracker struct {
	expanded map[int]bool
	selected *domain.Identity
}

func NewTracker() *Tracker {
	return &Tracker{expanded: make(map[int]bool)}
}

func (t *Tracker) Capture() Snapshot {
	s := Snapshot{Expanded: make(map[int]bool, len(t.expanded))}
	for idx, on := range t.expanded {
		if on {
			s.Expanded[idx] = true
		}
	}
	if t.selected != nil {
		id := *t.selected
		s.Selected = &id
	}
	return s
}

func (t *Tracker) Restore(s Snapshot) {
	t.expanded = make(map[int]bool, len(s.Expanded))
	for idx, on := range s.Expanded {
		if on {
			t.expanded[idx] = true
		}
	}
	t.selected = nil
	if s.Selected != nil {
		id := *s.Selected
		t.selected = &id
	}
}

func (t *Tracker) Reset() {
	t.expanded = make(map[int]bool)
	t.selected = nil
}

func (t *Tracker) Expanded(index int) bool {
	return t.expanded[index]
}

func (t *Tracker) SetExpanded(index int, on bool) {
	if on {
		t.expanded[index] = true
		return
	}
	delete(t.expanded, index)
}

func (t *Tracker) Selected() *domain.Identity {
	if t.selected == nil {
		return nil
	}
	id := *t.selected
	return &id
}

func (t *Tracker) Select(id *domain.Identity) {
	if id == nil {
		t.selected = nil
		return
	}
	v := *id
	t.selected = &v
}

// discussionRemoved shifts state after the discussion at index is deleted so
// identities keep pointing at the same discussions.
func (t *Tracker) discussionRemoved(index int) {
	shifted := make(map[int]bool, len(t.expanded))
	for idx := range t.expanded {
		switch {
		case idx < index:
			shifted[idx] = true
		case idx > index:
			shifted[idx-1] = true
		}
	}
	t.expanded = shifted

	if t.selected == nil {
		return
	}
	owner := t.selected.DiscussionIndex()
	switch {
	case owner == index:
		t.selected = nil
	case owner > index:
		if t.selected.Type == domain.KindPoint {
			t.selected.ParentIndex--
		} else {
			t.selected.Index--
		}
	}
}

// pointRemoved does the same for a point within its parent.
func (t *Tracker) pointRemoved(parent, index int) {
	if t.selected == nil || t.selected.Type != domain.KindPoint || t.selected.ParentIndex != parent {
		return
	}
	switch {
	case t.selected.Index == index:
		sel := domain.DiscussionID(parent)
		t.selected = &sel
	case t.selected.Index > index:
		t.selected.Index--
	}
}
