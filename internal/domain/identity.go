package domain

import "fmt"

type RowKind string

const (
	KindDiscussion RowKind = "discussion"
	KindPoint      RowKind = "point"
)

// Identity is the stable payload of a content row. Index is always a
// position in the unfiltered document: the discussion's original index for
// discussion rows, the point's position in its parent's full points list for
// point rows.
type Identity struct {
	Type        RowKind `json:"type"`
	Index       int     `json:"index"`
	ParentIndex int     `json:"parent_index,omitempty"`
}

func DiscussionID(index int) Identity {
	return Identity{Type: KindDiscussion, Index: index}
}

func PointID(parent, index int) Identity {
	return Identity{Type: KindPoint, ParentIndex: parent, Index: index}
}

// DiscussionIndex returns the index of the discussion the row belongs to.
func (id Identity) DiscussionIndex() int {
	if id.Type == KindPoint {
		return id.ParentIndex
	}
	return id.Index
}

func (id Identity) String() string {
	if id.Type == KindPoint {
		return fmt.Sprintf("point %d/%d", id.ParentIndex, id.Index)
	}
	return fmt.Sprintf("discussion %d", id.Index)
}

// TaskRef identifies a task across sessions.
type TaskRef struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}
