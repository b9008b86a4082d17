package reconcile

import (
	"fmt"
	"time"

	"repnote/internal/domain"
	"repnote/internal/logger"
	"repnote/internal/repetition"
)

// SubjectStore is the part of the storage gateway the reconciler needs.
// SaveSubject must refresh the metadata rollup before writing.
type SubjectStore interface {
	LoadSubject(topic, subject string) (domain.Document, error)
	SaveSubject(topic, subject string, doc *domain.Document) error
}

// Session is the editing context: which subject is open, its loaded
// document, and how it is being viewed. Only one exists at a time.
type Session struct {
	Topic    string
	Subject  string
	Document *domain.Document
	Filters  Filters
	Sort     SortState
}

func (s Session) Loaded() bool {
	return s.Document != nil
}

// Reconciler keeps the displayed content tree consistent with the stored
// subject through filtering, sorting and edits.
type Reconciler struct {
	store   SubjectStore
	vocab   *repetition.Vocabulary
	log     *logger.Logger
	now     func() time.Time
	session Session
	tracker *Tracker
	view    View
}

type Option func(*Reconciler)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithLogger(log *logger.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

func New(store SubjectStore, vocab *repetition.Vocabulary, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   store,
		vocab:   vocab,
		log:     logger.Nop(),
		now:     time.Now,
		tracker: NewTracker(),
		session: Session{Filters: Filters{Date: DateAll}},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns a copy of the current session. The document is cloned.
func (r *Reconciler) Session() Session {
	s := r.session
	if s.Document != nil {
		doc := s.Document.Clone()
		s.Document = &doc
	}
	return s
}

func (r *Reconciler) View() View { return r.view }

func (r *Reconciler) Tracker() *Tracker { return r.tracker }

func (r *Reconciler) Vocabulary() *repetition.Vocabulary { return r.vocab }

// Today is the date edits are stamped with.
func (r *Reconciler) Today() string { return domain.FormatDate(r.today()) }

func (r *Reconciler) today() time.Time {
	t := r.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Open discards the current document and loads another subject. Filters and
// sort carry over; expansion and selection start empty.
func (r *Reconciler) Open(topic, subject string) (View, error) {
	doc, err := r.store.LoadSubject(topic, subject)
	if err != nil {
		return r.view, err
	}
	r.session.Topic = topic
	r.session.Subject = subject
	r.session.Document = &doc
	r.tracker.Reset()
	r.log.Debug("subject opened", "topic", topic, "subject", subject, "discussions", len(doc.Content))
	return r.rebuild(), nil
}

// Close drops the open subject. Every edit is saved when applied, so nothing
// is lost.
func (r *Reconciler) Close() {
	r.session.Topic = ""
	r.session.Subject = ""
	r.session.Document = nil
	r.tracker.Reset()
	r.view = View{Filters: r.session.Filters, Sort: r.session.Sort}
}

// Refresh reloads the open subject from storage and rebuilds the view,
// keeping expansion and selection by identity.
func (r *Reconciler) Refresh() (View, error) {
	if !r.session.Loaded() {
		return r.rebuild(), nil
	}
	doc, err := r.store.LoadSubject(r.session.Topic, r.session.Subject)
	if err != nil {
		return r.view, err
	}
	r.session.Document = &doc
	return r.rebuild(), nil
}

func (r *Reconciler) SetFilters(f Filters) (View, error) {
	if f.Date == "" {
		f.Date = DateAll
	}
	r.session.Filters = f
	return r.Refresh()
}

func (r *Reconciler) SetSort(s SortState) (View, error) {
	r.session.Sort = s
	return r.Refresh()
}

// rebuild derives the view from the in-memory document.
func (r *Reconciler) rebuild() View {
	v := View{
		Topic:   r.session.Topic,
		Subject: r.session.Subject,
		Filters: r.session.Filters,
		Sort:    r.session.Sort,
	}
	if !r.session.Loaded() {
		r.tracker.Select(nil)
		r.view = v
		return v
	}
	content := r.session.Document.Content
	cs := applyFilters(content, r.session.Filters, domain.FormatDate(r.today()))
	sortCandidates(cs, r.session.Sort)
	v.Rows = render(content, cs, r.tracker, r.session.Filters.searching())
	r.view = v
	return v
}

// Select marks the row with the given identity as selected. A nil id or one
// not in the current view clears the selection; the result reports whether
// the row was found.
func (r *Reconciler) Select(id *domain.Identity) bool {
	found := false
	if id != nil {
		_, found = r.view.Find(*id)
	}
	if found {
		r.tracker.Select(id)
	} else {
		r.tracker.Select(nil)
	}
	for i := range r.view.Rows {
		r.view.Rows[i].Selected = found && r.view.Rows[i].ID == *id
	}
	return found
}

// ToggleExpanded flips a discussion's expansion and returns the new state.
func (r *Reconciler) ToggleExpanded(index int) bool {
	on := !r.tracker.Expanded(index)
	r.tracker.SetExpanded(index, on)
	for i := range r.view.Rows {
		row := &r.view.Rows[i]
		if row.ID.Type == domain.KindDiscussion && row.ID.Index == index {
			row.Expanded = on || r.session.Filters.searching()
		}
	}
	return on
}

// Capture and Restore expose the tracker state across a subject switch.
func (r *Reconciler) Capture() Snapshot { return r.tracker.Capture() }

func (r *Reconciler) Restore(s Snapshot) View {
	r.tracker.Restore(s)
	return r.rebuild()
}

// SelectionInfo says what is selected and which edits apply to it.
type SelectionInfo struct {
	Loaded   bool
	Selected *domain.Identity
	// Parent is the discussion a new point would be added to.
	Parent int

	CanAddDiscussion    bool
	CanEditDiscussion   bool
	CanDeleteDiscussion bool
	CanAddPoint         bool
	CanEditPoint        bool
	CanDeletePoint      bool
	CanSetDate          bool
	CanChangeCode       bool
	CanToggleFinish     bool
}

func (r *Reconciler) Selection() SelectionInfo {
	info := SelectionInfo{Loaded: r.session.Loaded(), Parent: -1}
	if !info.Loaded {
		return info
	}
	info.CanAddDiscussion = true
	id := r.tracker.Selected()
	if id == nil {
		return info
	}
	s, schedulable, err := lookup(r.session.Document, *id)
	if err != nil {
		return info
	}
	info.Selected = id
	info.Parent = id.DiscussionIndex()
	info.CanAddPoint = true
	switch id.Type {
	case domain.KindDiscussion:
		info.CanEditDiscussion = true
		info.CanDeleteDiscussion = true
	case domain.KindPoint:
		info.CanEditPoint = true
		info.CanDeletePoint = true
	}
	if schedulable {
		info.CanToggleFinish = true
		info.CanSetDate = !s.Finished
		info.CanChangeCode = !s.Finished
	}
	return info
}

// CodeChange previews the effect of a code change so the caller can confirm
// it before applying.
type CodeChange struct {
	Target   domain.Identity
	FromDate string
	ToDate   string
	FromCode string
	ToCode   string
	Changed  bool
}

func (r *Reconciler) PreviewCode(target domain.Identity, code string) (CodeChange, error) {
	if !r.session.Loaded() {
		return CodeChange{}, errNoSubject
	}
	s, schedulable, err := lookup(r.session.Document, target)
	if err != nil {
		return CodeChange{}, err
	}
	if !schedulable {
		return CodeChange{}, errScheduledByPoints(target)
	}
	next, changed, err := r.vocab.Advance(s, code, r.today())
	if err != nil {
		return CodeChange{}, err
	}
	return CodeChange{
		Target:   target,
		FromDate: domain.Deref(s.Date),
		ToDate:   domain.Deref(next.Date),
		FromCode: domain.Deref(s.RepetitionCode),
		ToCode:   domain.Deref(next.RepetitionCode),
		Changed:  changed,
	}, nil
}

// Apply runs an edit against a copy of the document, persists it and only
// then makes it current. On any error the in-memory document is unchanged.
// changed is false when the edit was a no-op and nothing was written.
func (r *Reconciler) Apply(op Op) (changed bool, err error) {
	if !r.session.Loaded() {
		return false, errNoSubject
	}
	e := &edit{
		doc:   r.session.Document.Clone(),
		today: r.today(),
		vocab: r.vocab,
	}
	if err := op.apply(e); err != nil {
		r.log.Debug("edit rejected", "op", fmt.Sprintf("%T", op), "error", err)
		return false, err
	}
	if e.noop {
		return false, nil
	}
	if err := r.store.SaveSubject(r.session.Topic, r.session.Subject, &e.doc); err != nil {
		r.log.Error("save failed", "topic", r.session.Topic, "subject", r.session.Subject, "error", err)
		return false, err
	}
	r.session.Document = &e.doc
	if e.track != nil {
		e.track(r.tracker)
	}
	r.log.Info("subject edited", "topic", r.session.Topic, "subject", r.session.Subject, "op", fmt.Sprintf("%T", op))
	if _, err := r.Refresh(); err != nil {
		return true, err
	}
	return true, nil
}
