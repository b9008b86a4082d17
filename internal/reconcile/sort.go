package reconcile

import (
	"sort"
	"strings"

	"repnote/internal/domain"
	"repnote/internal/repetition"
)

type SortColumn int

const (
	// SortByOrder ranks by repetition bucket, then date.
	SortByOrder SortColumn = iota
	SortByText
	SortByDate
)

func (c SortColumn) String() string {
	switch c {
	case SortByText:
		return "text"
	case SortByDate:
		return "date"
	}
	return "order"
}

type SortState struct {
	Column     SortColumn
	Descending bool
}

// Toggle mirrors a column header click: the same column flips direction, a
// new column starts ascending.
func (s SortState) Toggle(col SortColumn) SortState {
	if s.Column == col {
		s.Descending = !s.Descending
		return s
	}
	return SortState{Column: col}
}

// sortCandidates orders discussions by their own stored fields. A discussion
// with points carries no date or code of its own and so ranks last under
// SortByOrder.
func sortCandidates(cs []candidate, s SortState) {
	cmp := func(a, b candidate) int {
		switch s.Column {
		case SortByText:
			return strings.Compare(strings.ToLower(a.disc.Text), strings.ToLower(b.disc.Text))
		case SortByDate:
			return repetition.KeyOf(dateOnly(a.disc)).Date.Compare(repetition.KeyOf(dateOnly(b.disc)).Date)
		}
		return repetition.KeyOf(a.disc.Schedule).Compare(repetition.KeyOf(b.disc.Schedule))
	}
	sort.SliceStable(cs, func(i, j int) bool {
		c := cmp(cs[i], cs[j])
		if s.Descending {
			return c > 0
		}
		return c < 0
	})
}

// dateOnly is the schedule whose date the date column shows: the
// discussion's own, or its earliest displayed point.
func dateOnly(d domain.Discussion) domain.Schedule {
	if !d.HasPoints() {
		return domain.Schedule{Date: d.Date}
	}
	return domain.Schedule{Date: earliestPointDate(d.Points)}
}

func earliestPointDate(points []domain.Point) *string {
	var earliest *string
	for _, p := range points {
		if p.Date == nil || *p.Date == "" {
			continue
		}
		if earliest == nil || *p.Date < *earliest {
			d := *p.Date
			earliest = &d
		}
	}
	return earliest
}
