package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repnote/internal/domain"
	"repnote/internal/repetition"
	"repnote/internal/session"
	"repnote/internal/storage"
)

var testToday = time.Date(2024, time.March, 10, 15, 30, 0, 0, time.Local)

func fixedClock() time.Time { return testToday }

// memStore keeps subjects in memory and refreshes metadata on save like the
// file gateway does.
type memStore struct {
	docs    map[string]domain.Document
	saves   int
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]domain.Document)}
}

func (m *memStore) LoadSubject(topic, subject string) (domain.Document, error) {
	doc, ok := m.docs[topic+"/"+subject]
	if !ok {
		doc = domain.NewDocument("")
	}
	out := doc.Clone()
	out.Normalize()
	return out, nil
}

func (m *memStore) SaveSubject(topic, subject string, doc *domain.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	doc.Normalize()
	repetition.RefreshMetadata(doc)
	m.docs[topic+"/"+subject] = doc.Clone()
	m.saves++
	return nil
}

func disc(text, date, code string, points ...domain.Point) domain.Discussion {
	d := domain.Discussion{Text: text, Points: points}
	if len(points) == 0 {
		if date != "" {
			d.Date = domain.StringPtr(date)
		}
		if code != "" {
			d.RepetitionCode = domain.StringPtr(code)
		}
	}
	return d
}

func point(text, date, code string) domain.Point {
	p := domain.Point{Text: text}
	if date != "" {
		p.Date = domain.StringPtr(date)
	}
	if code != "" {
		p.RepetitionCode = domain.StringPtr(code)
	}
	return p
}

func openWith(t *testing.T, content ...domain.Discussion) (*Reconciler, *memStore) {
	t.Helper()
	store := newMemStore()
	store.docs["T/S"] = domain.Document{Content: content}
	r := New(store, repetition.DefaultVocabulary(), WithClock(fixedClock))
	_, err := r.Open("T", "S")
	require.NoError(t, err)
	return r, store
}

func discussionRows(v View) []Row {
	var out []Row
	for _, r := range v.Rows {
		if r.ID.Type == domain.KindDiscussion {
			out = append(out, r)
		}
	}
	return out
}

func TestIdentityStableUnderFilterAndSort(t *testing.T) {
	content := []domain.Discussion{
		disc("seven", "2024-03-11", "R7D"),
		disc("one later", "2024-04-30", "R1D"),
		disc("finished", "", "Finish"),
		disc("zero", "2024-03-10", "R0D"),
		disc("one sooner", "2024-03-09", "R1D"),
	}
	content[2].Finished = true
	r, _ := openWith(t, content...)
	original := map[string]int{}
	for i, d := range content {
		original[d.Text] = i
	}

	cases := []struct {
		name    string
		filters Filters
		sort    SortState
		want    []string
	}{
		{"bucket before date", Filters{}, SortState{}, []string{"zero", "one sooner", "one later", "seven", "finished"}},
		{"descending", Filters{}, SortState{Descending: true}, []string{"finished", "seven", "one later", "one sooner", "zero"}},
		{"by text", Filters{}, SortState{Column: SortByText}, []string{"finished", "one later", "one sooner", "seven", "zero"}},
		{"past and today", Filters{Date: DatePastAndToday}, SortState{}, []string{"zero", "one sooner"}},
		{"today", Filters{Date: DateToday}, SortState{}, []string{"zero"}},
		{"search and date", Filters{Query: "ONE", Date: DatePastAndToday}, SortState{}, []string{"one sooner"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.SetSort(tc.sort)
			require.NoError(t, err)
			v, err := r.SetFilters(tc.filters)
			require.NoError(t, err)

			rows := discussionRows(v)
			var got []string
			for i, row := range rows {
				got = append(got, row.Text)
				assert.Equal(t, original[row.Text], row.ID.Index, row.Text)
				assert.Equal(t, i+1, row.Number)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPointIndexResolvesToUnfilteredPosition(t *testing.T) {
	r, _ := openWith(t,
		disc("other", "2024-03-01", "R0D"),
		disc("parent", "", "",
			point("alpha one", "2024-03-01", "R0D"),
			point("beta", "2024-05-01", "R3D"),
			point("alpha two", "2024-03-10", "R1D"),
			point("gamma", "", ""),
		),
	)

	v, err := r.SetFilters(Filters{Query: "alpha"})
	require.NoError(t, err)
	var ids []domain.Identity
	for _, row := range v.Rows {
		if row.ID.Type == domain.KindPoint {
			ids = append(ids, row.ID)
		}
	}
	assert.Equal(t, []domain.Identity{domain.PointID(1, 0), domain.PointID(1, 2)}, ids)

	v, err = r.SetFilters(Filters{Date: DatePastAndToday})
	require.NoError(t, err)
	ids = ids[:0]
	for _, row := range v.Rows {
		if row.ID.Type == domain.KindPoint {
			ids = append(ids, row.ID)
		}
	}
	assert.Equal(t, []domain.Identity{domain.PointID(1, 0), domain.PointID(1, 2)}, ids)

	// editing through the resolved identity touches the right point
	_, err = r.Apply(EditPoint{Parent: 1, Index: 2, Text: "alpha 2"})
	require.NoError(t, err)
	doc := r.Session().Document
	assert.Equal(t, "beta", doc.Content[1].Points[1].Text)
	assert.Equal(t, "alpha 2", doc.Content[1].Points[2].Text)
}

func TestDuplicatePointsResolveSeparately(t *testing.T) {
	r, _ := openWith(t, disc("d", "", "",
		point("same", "2024-03-01", "R0D"),
		point("same", "2024-03-01", "R0D"),
	))
	v, err := r.SetFilters(Filters{Query: "same"})
	require.NoError(t, err)
	require.Len(t, v.Rows, 3)
	assert.Equal(t, domain.PointID(0, 0), v.Rows[1].ID)
	assert.Equal(t, domain.PointID(0, 1), v.Rows[2].ID)
}

func TestSearchKeepsWholeDiscussionOnTextMatch(t *testing.T) {
	r, _ := openWith(t, disc("Factoring", "", "",
		point("Quadratics", "2024-03-01", "R0D"),
		point("Cubics", "2024-03-01", "R0D"),
	))
	v, err := r.SetFilters(Filters{Query: "factor"})
	require.NoError(t, err)
	require.Len(t, v.Rows, 3)
	assert.True(t, v.Rows[0].Expanded, "search results auto-expand")
	assert.Len(t, v.Visible(), 3)

	v, err = r.SetFilters(Filters{})
	require.NoError(t, err)
	assert.False(t, v.Rows[0].Expanded)
	assert.Len(t, v.Visible(), 1)
}

func TestDisplayDateForDiscussionWithPoints(t *testing.T) {
	r, _ := openWith(t, disc("d", "", "",
		point("a", "2024-04-01", "R3D"),
		point("b", "2024-03-20", "R1D"),
	))
	row := r.View().Rows[0]
	assert.True(t, row.HasPoints)
	assert.Equal(t, "(2024-03-20)", row.DisplayDate)
	assert.Empty(t, row.Code)
}

func TestExclusivityInvariant(t *testing.T) {
	r, _ := openWith(t, disc("Factoring", "2024-03-01", "R3D"))

	changed, err := r.Apply(AddPoint{Parent: 0, Text: "Quadratics"})
	require.NoError(t, err)
	assert.True(t, changed)
	d := r.Session().Document.Content[0]
	assert.Nil(t, d.Date)
	assert.Nil(t, d.RepetitionCode)
	require.Len(t, d.Points, 1)
	assert.Equal(t, "2024-03-10", domain.Deref(d.Points[0].Date))
	assert.Equal(t, "R0D", domain.Deref(d.Points[0].RepetitionCode))

	sel := r.Selection()
	require.NotNil(t, sel.Selected)
	assert.Equal(t, domain.PointID(0, 0), *sel.Selected)
	assert.True(t, r.View().Rows[0].Expanded)

	_, err = r.Apply(DeletePoint{Parent: 0, Index: 0})
	require.NoError(t, err)
	d = r.Session().Document.Content[0]
	assert.Empty(t, d.Points)
	assert.Equal(t, "2024-03-10", domain.Deref(d.Date))
	assert.Equal(t, "R0D", domain.Deref(d.RepetitionCode))

	sel = r.Selection()
	require.NotNil(t, sel.Selected)
	assert.Equal(t, domain.DiscussionID(0), *sel.Selected)
}

func TestRejectedEditLeavesDocumentUnchanged(t *testing.T) {
	r, store := openWith(t,
		disc("with points", "", "", point("p", "2024-03-01", "R0D")),
		disc("plain", "2024-03-01", "R1D"),
	)
	before := r.Session().Document.Clone()

	cases := []struct {
		name string
		op   Op
		want error
	}{
		{"date on discussion with points", SetDate{Target: domain.DiscussionID(0), Date: "2024-04-01"}, domain.ErrInvariantViolation},
		{"code on discussion with points", ChangeCode{Target: domain.DiscussionID(0), Code: "R7D"}, domain.ErrInvariantViolation},
		{"finish on discussion with points", ToggleFinish{Target: domain.DiscussionID(0)}, domain.ErrInvariantViolation},
		{"finish code through advance", ChangeCode{Target: domain.DiscussionID(1), Code: "Finish"}, domain.ErrInvariantViolation},
		{"unknown code", ChangeCode{Target: domain.DiscussionID(1), Code: "R99D"}, domain.ErrInvariantViolation},
		{"bad date", SetDate{Target: domain.DiscussionID(1), Date: "03/01/2024"}, domain.ErrValidation},
		{"empty text", AddDiscussion{Text: "  "}, domain.ErrValidation},
		{"missing point", EditPoint{Parent: 0, Index: 5, Text: "x"}, domain.ErrNotFound},
		{"missing discussion", DeleteDiscussion{Index: 9}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			changed, err := r.Apply(tc.op)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsRejected(err))
			assert.False(t, changed)
			assert.Equal(t, before, *r.Session().Document)
		})
	}
	assert.Zero(t, store.saves)
}

func TestFailedSaveLeavesDocumentUnchanged(t *testing.T) {
	r, store := openWith(t, disc("plain", "2024-03-01", "R1D"))
	before := r.Session().Document.Clone()
	store.saveErr = domain.NewIOError("rename", "/x", errors.New("disk full"))

	_, err := r.Apply(ChangeCode{Target: domain.DiscussionID(0), Code: "R7D"})
	assert.ErrorIs(t, err, domain.ErrIOFailure)
	assert.False(t, IsRejected(err))
	assert.Equal(t, before, *r.Session().Document)
}

func TestChangeCodeNoopSkipsSave(t *testing.T) {
	r, store := openWith(t, disc("plain", "2024-03-17", "R7D"))

	preview, err := r.PreviewCode(domain.DiscussionID(0), "R7D")
	require.NoError(t, err)
	assert.False(t, preview.Changed)

	changed, err := r.Apply(ChangeCode{Target: domain.DiscussionID(0), Code: "R7D"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Zero(t, store.saves)

	preview, err = r.PreviewCode(domain.DiscussionID(0), "R1D")
	require.NoError(t, err)
	assert.Equal(t, CodeChange{
		Target:   domain.DiscussionID(0),
		FromDate: "2024-03-17",
		ToDate:   "2024-03-11",
		FromCode: "R7D",
		ToCode:   "R1D",
		Changed:  true,
	}, preview)
}

func TestSetDate(t *testing.T) {
	r, store := openWith(t, disc("undated", "", ""))
	_, err := r.Apply(SetDate{Target: domain.DiscussionID(0), Date: "2024-05-01"})
	require.NoError(t, err)
	d := store.docs["T/S"].Content[0]
	assert.Equal(t, "2024-05-01", domain.Deref(d.Date))
	assert.Equal(t, "R0D", domain.Deref(d.RepetitionCode))
	assert.Equal(t, "2024-05-01", domain.Deref(store.docs["T/S"].Metadata.EarliestDate))
}

func TestToggleFinish(t *testing.T) {
	r, store := openWith(t,
		disc("a", "2024-03-01", "R1D"),
		disc("b", "2024-03-20", "R3D"),
	)
	_, err := r.Apply(ToggleFinish{Target: domain.DiscussionID(0)})
	require.NoError(t, err)

	saved := store.docs["T/S"]
	a := saved.Content[0]
	assert.True(t, a.Finished)
	assert.Nil(t, a.Date)
	assert.Equal(t, "Finish", domain.Deref(a.RepetitionCode))
	assert.Equal(t, "2024-03-10", domain.Deref(a.FinishedDate))
	assert.Equal(t, "2024-03-20", domain.Deref(saved.Metadata.EarliestDate), "finished records leave the rollup")

	rows := discussionRows(r.View())
	assert.Equal(t, "b", rows[0].Text)
	assert.Equal(t, "a", rows[1].Text, "finished sorts last")

	sel := domain.DiscussionID(0)
	require.True(t, r.Select(&sel))
	info := r.Selection()
	assert.True(t, info.CanToggleFinish)
	assert.False(t, info.CanChangeCode)
	assert.False(t, info.CanSetDate)

	_, err = r.Apply(ToggleFinish{Target: domain.DiscussionID(0)})
	require.NoError(t, err)
	a = store.docs["T/S"].Content[0]
	assert.False(t, a.Finished)
	assert.Nil(t, a.FinishedDate)
	assert.Equal(t, "2024-03-10", domain.Deref(a.Date))
	assert.Equal(t, "R0D", domain.Deref(a.RepetitionCode))
}

func TestSelectionSurvivesRefreshAndClearsWhenFilteredOut(t *testing.T) {
	r, _ := openWith(t,
		disc("a", "2024-03-01", "R1D"),
		disc("b", "2024-06-01", "R0D"),
	)
	id := domain.DiscussionID(0)
	require.True(t, r.Select(&id))

	v, err := r.SetSort(SortState{Column: SortByText, Descending: true})
	require.NoError(t, err)
	row, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", row.Text)

	_, err = r.SetFilters(Filters{Query: "b"})
	require.NoError(t, err)
	assert.Nil(t, r.Selection().Selected)

	missing := domain.DiscussionID(7)
	assert.False(t, r.Select(&missing))
}

func TestDeleteShiftsTrackedIdentities(t *testing.T) {
	r, _ := openWith(t,
		disc("a", "2024-03-01", "R0D"),
		disc("b", "", "", point("b0", "2024-03-01", "R0D"), point("b1", "2024-03-02", "R0D")),
		disc("c", "", "", point("c0", "2024-03-01", "R0D")),
	)
	r.ToggleExpanded(1)
	r.ToggleExpanded(2)
	sel := domain.PointID(2, 0)
	require.True(t, r.Select(&sel))

	_, err := r.Apply(DeleteDiscussion{Index: 0})
	require.NoError(t, err)
	snap := r.Capture()
	assert.Equal(t, []int{0, 1}, snap.ExpandedIndices())
	require.NotNil(t, snap.Selected)
	assert.Equal(t, domain.PointID(1, 0), *snap.Selected)
	row, ok := r.View().Selected()
	require.True(t, ok)
	assert.Equal(t, "c0", row.Text)

	sel = domain.PointID(0, 1)
	require.True(t, r.Select(&sel))
	_, err = r.Apply(DeletePoint{Parent: 0, Index: 0})
	require.NoError(t, err)
	row, ok = r.View().Selected()
	require.True(t, ok)
	assert.Equal(t, "b1", row.Text)
	assert.Equal(t, domain.PointID(0, 0), row.ID)
}

func TestSelectionInfo(t *testing.T) {
	r := New(newMemStore(), repetition.DefaultVocabulary(), WithClock(fixedClock))
	assert.False(t, r.Selection().Loaded)
	_, err := r.Apply(AddDiscussion{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	r, _ = openWith(t,
		disc("with points", "", "", point("p", "2024-03-01", "R0D")),
		disc("plain", "2024-03-01", "R1D"),
	)
	info := r.Selection()
	assert.True(t, info.CanAddDiscussion)
	assert.False(t, info.CanAddPoint)

	id := domain.DiscussionID(0)
	require.True(t, r.Select(&id))
	info = r.Selection()
	assert.True(t, info.CanEditDiscussion)
	assert.True(t, info.CanAddPoint)
	assert.False(t, info.CanSetDate)
	assert.False(t, info.CanToggleFinish)

	id = domain.PointID(0, 0)
	require.True(t, r.Select(&id))
	info = r.Selection()
	assert.Equal(t, 0, info.Parent)
	assert.True(t, info.CanEditPoint)
	assert.True(t, info.CanAddPoint)
	assert.True(t, info.CanChangeCode)
	assert.False(t, info.CanDeleteDiscussion)
}

func TestSetSubjectIcon(t *testing.T) {
	r, store := openWith(t)
	_, err := r.Apply(SetSubjectIcon{Icon: "★"})
	require.NoError(t, err)
	assert.Equal(t, "★", store.docs["T/S"].Metadata.Icon)

	changed, err := r.Apply(SetSubjectIcon{Icon: "★"})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSortStateToggle(t *testing.T) {
	s := SortState{}
	s = s.Toggle(SortByOrder)
	assert.Equal(t, SortState{Column: SortByOrder, Descending: true}, s)
	s = s.Toggle(SortByDate)
	assert.Equal(t, SortState{Column: SortByDate}, s)
	assert.Equal(t, "date", s.Column.String())
}

func TestParseDateFilter(t *testing.T) {
	f, err := ParseDateFilter("Past_And_Today")
	require.NoError(t, err)
	assert.Equal(t, DatePastAndToday, f)
	f, err = ParseDateFilter("")
	require.NoError(t, err)
	assert.Equal(t, DateAll, f)
	_, err = ParseDateFilter("tomorrow")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, DateToday, DateAll.Next())
	assert.Equal(t, DateAll, DatePastAndToday.Next())
}

func newGateway(t *testing.T) *storage.Gateway {
	t.Helper()
	g, err := storage.Open(storage.Options{DataDir: t.TempDir(), DefaultSubjectIcon: "S"}, nil)
	require.NoError(t, err)
	return g
}

func TestEndToEndScenario(t *testing.T) {
	g := newGateway(t)
	require.NoError(t, g.CreateTopic("Math"))
	require.NoError(t, g.CreateSubject("Math", "Algebra"))

	r := New(g, repetition.DefaultVocabulary(), WithClock(fixedClock))
	_, err := r.Open("Math", "Algebra")
	require.NoError(t, err)

	_, err = r.Apply(AddDiscussion{Text: "Factoring"})
	require.NoError(t, err)
	d := r.Session().Document.Content[0]
	assert.Equal(t, "2024-03-10", domain.Deref(d.Date))
	assert.Equal(t, "R0D", domain.Deref(d.RepetitionCode))

	_, err = r.Apply(AddPoint{Parent: 0, Text: "Quadratics"})
	require.NoError(t, err)
	d = r.Session().Document.Content[0]
	assert.Nil(t, d.Date)
	assert.Nil(t, d.RepetitionCode)

	subjects, err := g.ListSubjects("Math")
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "2024-03-10", domain.Deref(subjects[0].EarliestDate))

	_, err = r.Apply(ChangeCode{Target: domain.PointID(0, 0), Code: "R7D"})
	require.NoError(t, err)
	p := r.Session().Document.Content[0].Points[0]
	assert.Equal(t, "2024-03-17", domain.Deref(p.Date))
	assert.Equal(t, "R7D", domain.Deref(p.RepetitionCode))

	subjects, err = g.ListSubjects("Math")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-17", domain.Deref(subjects[0].EarliestDate))
	assert.Equal(t, "R7D", domain.Deref(subjects[0].EarliestCode))
}

type fakeTasks []domain.TaskCategory

func (f fakeTasks) Categories() ([]domain.TaskCategory, error) { return f, nil }

func TestRestoreSession(t *testing.T) {
	g := newGateway(t)
	require.NoError(t, g.CreateTopic("Math"))
	doc := domain.Document{Content: []domain.Discussion{
		disc("a", "2024-03-01", "R0D"),
		disc("b", "", "", point("b0", "2024-03-01", "R0D")),
	}}
	require.NoError(t, g.SaveSubject("Math", "Algebra", &doc))
	tasks := fakeTasks{{Name: "Daily", Tasks: []domain.Task{{Name: "read"}}}}

	content := domain.PointID(1, 0)
	t.Run("everything present", func(t *testing.T) {
		r := New(g, repetition.DefaultVocabulary(), WithClock(fixedClock))
		got := r.RestoreSession(session.LastSelection{
			Topic: "Math", Subject: "Algebra", Content: &content,
			Category: "Daily", Task: &domain.TaskRef{Category: "Daily", Name: "read"},
		}, g, tasks, []int{1})
		assert.Equal(t, Restored{
			Topic: "Math", Subject: "Algebra", Content: &content,
			Category: "Daily", Task: &domain.TaskRef{Category: "Daily", Name: "read"},
		}, got)
		row, ok := r.View().Selected()
		require.True(t, ok)
		assert.Equal(t, "b0", row.Text)
		assert.True(t, r.View().Rows[1].Expanded)
	})

	t.Run("missing steps are tolerated", func(t *testing.T) {
		r := New(g, repetition.DefaultVocabulary(), WithClock(fixedClock))
		gone := domain.DiscussionID(9)
		got := r.RestoreSession(session.LastSelection{
			Topic: "Math", Subject: "Algebra", Content: &gone,
			Category: "Daily", Task: &domain.TaskRef{Category: "Daily", Name: "deleted"},
		}, g, tasks, nil)
		assert.Equal(t, Restored{Topic: "Math", Subject: "Algebra", Category: "Daily"}, got)

		got = r.RestoreSession(session.LastSelection{
			Topic: "Math", Subject: "Deleted",
			Category: domain.AllTasksCategory, Task: &domain.TaskRef{Category: "Daily", Name: "read"},
		}, g, tasks, nil)
		assert.Equal(t, Restored{
			Topic: "Math", Category: domain.AllTasksCategory,
			Task: &domain.TaskRef{Category: "Daily", Name: "read"},
		}, got)
	})
}
