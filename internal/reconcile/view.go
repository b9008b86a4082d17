package reconcile

import (
	"repnote/internal/domain"
)

// Row is one line of the content tree. ID always refers to the unfiltered
// document, whatever the display order.
type Row struct {
	ID domain.Identity
	// Number is the 1-based position among displayed discussions; zero for
	// point rows.
	Number      int
	Text        string
	Date        string
	DisplayDate string
	Code        string
	Finished    bool
	HasPoints   bool
	Expanded    bool
	Selected    bool
}

type View struct {
	Topic   string
	Subject string
	Filters Filters
	Sort    SortState
	Rows    []Row
}

// Visible returns the rows a tree shows: every discussion plus the points of
// expanded discussions.
func (v View) Visible() []Row {
	out := make([]Row, 0, len(v.Rows))
	expanded := false
	for _, r := range v.Rows {
		if r.ID.Type == domain.KindDiscussion {
			expanded = r.Expanded
			out = append(out, r)
			continue
		}
		if expanded {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the position of the row with the given identity.
func (v View) Find(id domain.Identity) (int, bool) {
	for i, r := range v.Rows {
		if r.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (v View) Selected() (Row, bool) {
	for _, r := range v.Rows {
		if r.Selected {
			return r, true
		}
	}
	return Row{}, false
}

// render builds rows from sorted candidates. Point rows resolve back to the
// point's position in the unfiltered parent through its id.
func render(content []domain.Discussion, cs []candidate, t *Tracker, expandAll bool) []Row {
	rows := make([]Row, 0, len(cs))
	sel := t.Selected()
	found := false
	for n, c := range cs {
		id := domain.DiscussionID(c.index)
		row := Row{
			ID:        id,
			Number:    n + 1,
			Text:      c.disc.Text,
			HasPoints: c.disc.HasPoints(),
			Expanded:  expandAll || t.Expanded(c.index),
		}
		if row.HasPoints {
			if d := earliestPointDate(c.disc.Points); d != nil {
				row.DisplayDate = "(" + *d + ")"
			}
		} else {
			row.Date = domain.Deref(c.disc.Date)
			row.DisplayDate = row.Date
			row.Code = domain.Deref(c.disc.RepetitionCode)
			row.Finished = c.disc.Finished
		}
		if sel != nil && *sel == id {
			row.Selected = true
			found = true
		}
		rows = append(rows, row)

		orig := content[c.index]
		for _, p := range c.disc.Points {
			pi := orig.PointIndex(p.ID)
			if pi < 0 {
				continue
			}
			pid := domain.PointID(c.index, pi)
			prow := Row{
				ID:          pid,
				Text:        p.Text,
				Date:        domain.Deref(p.Date),
				DisplayDate: domain.Deref(p.Date),
				Code:        domain.Deref(p.RepetitionCode),
				Finished:    p.Finished,
			}
			if sel != nil && *sel == pid {
				prow.Selected = true
				found = true
			}
			rows = append(rows, prow)
		}
	}
	if !found {
		t.Select(nil)
	}
	return rows
}
