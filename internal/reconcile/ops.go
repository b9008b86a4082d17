package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"repnote/internal/domain"
	"repnote/internal/repetition"
)

var errNoSubject = fmt.Errorf("%w: no subject is open", domain.ErrNotFound)

func errScheduledByPoints(id domain.Identity) error {
	return fmt.Errorf("%w: %s is scheduled by its points", domain.ErrInvariantViolation, id)
}

// Op is an edit to the open subject.
type Op interface {
	apply(e *edit) error
}

// edit is the working state of one Apply call. doc is a private clone.
type edit struct {
	doc   domain.Document
	today time.Time
	vocab *repetition.Vocabulary
	noop  bool
	track func(*Tracker)
}

// lookup returns the schedule of the record id names and whether that record
// carries its own schedule. A discussion with points does not.
func lookup(doc *domain.Document, id domain.Identity) (domain.Schedule, bool, error) {
	s, err := schedulePtr(doc, id)
	if err != nil {
		return domain.Schedule{}, false, err
	}
	if id.Type == domain.KindDiscussion && doc.Content[id.Index].HasPoints() {
		return *s, false, nil
	}
	return *s, true, nil
}

func schedulePtr(doc *domain.Document, id domain.Identity) (*domain.Schedule, error) {
	switch id.Type {
	case domain.KindDiscussion:
		if id.Index < 0 || id.Index >= len(doc.Content) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return &doc.Content[id.Index].Schedule, nil
	case domain.KindPoint:
		if id.ParentIndex < 0 || id.ParentIndex >= len(doc.Content) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		points := doc.Content[id.ParentIndex].Points
		if id.Index < 0 || id.Index >= len(points) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return &points[id.Index].Schedule, nil
	}
	return nil, fmt.Errorf("%w: unknown row type %q", domain.ErrValidation, id.Type)
}

// ownSchedule is schedulePtr restricted to records that carry their own
// schedule.
func (e *edit) ownSchedule(id domain.Identity) (*domain.Schedule, error) {
	s, err := schedulePtr(&e.doc, id)
	if err != nil {
		return nil, err
	}
	if id.Type == domain.KindDiscussion && e.doc.Content[id.Index].HasPoints() {
		return nil, errScheduledByPoints(id)
	}
	return s, nil
}

func (e *edit) discussion(index int) (*domain.Discussion, error) {
	if index < 0 || index >= len(e.doc.Content) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, domain.DiscussionID(index))
	}
	return &e.doc.Content[index], nil
}

// fresh is the schedule of a newly created or newly pointless record.
func (e *edit) fresh() domain.Schedule {
	return domain.Schedule{
		Date:           domain.DatePtr(e.today),
		RepetitionCode: domain.StringPtr(e.vocab.Base()),
	}
}

func requireText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: text is empty", domain.ErrValidation)
	}
	return s, nil
}

// AddDiscussion appends a discussion due today at the base code.
type AddDiscussion struct {
	Text string
}

func (op AddDiscussion) apply(e *edit) error {
	text, err := requireText(op.Text)
	if err != nil {
		return err
	}
	e.doc.Content = append(e.doc.Content, domain.Discussion{
		Text:     text,
		Schedule: e.fresh(),
		Points:   []domain.Point{},
	})
	id := domain.DiscussionID(len(e.doc.Content) - 1)
	e.track = func(t *Tracker) { t.Select(&id) }
	return nil
}

type EditDiscussion struct {
	Index int
	Text  string
}

func (op EditDiscussion) apply(e *edit) error {
	text, err := requireText(op.Text)
	if err != nil {
		return err
	}
	d, err := e.discussion(op.Index)
	if err != nil {
		return err
	}
	if d.Text == text {
		e.noop = true
		return nil
	}
	d.Text = text
	return nil
}

type DeleteDiscussion struct {
	Index int
}

func (op DeleteDiscussion) apply(e *edit) error {
	if _, err := e.discussion(op.Index); err != nil {
		return err
	}
	e.doc.Content = append(e.doc.Content[:op.Index], e.doc.Content[op.Index+1:]...)
	e.track = func(t *Tracker) { t.discussionRemoved(op.Index) }
	return nil
}

// AddPoint appends a point to a discussion. The first point moves the
// discussion's own schedule onto its points.
type AddPoint struct {
	Parent int
	Text   string
}

func (op AddPoint) apply(e *edit) error {
	text, err := requireText(op.Text)
	if err != nil {
		return err
	}
	d, err := e.discussion(op.Parent)
	if err != nil {
		return err
	}
	if !d.HasPoints() {
		d.Schedule = domain.Schedule{}
	}
	d.Points = append(d.Points, domain.Point{
		ID:       uuid.New(),
		Text:     text,
		Schedule: e.fresh(),
	})
	id := domain.PointID(op.Parent, len(d.Points)-1)
	e.track = func(t *Tracker) {
		t.SetExpanded(op.Parent, true)
		t.Select(&id)
	}
	return nil
}

type EditPoint struct {
	Parent int
	Index  int
	Text   string
}

func (op EditPoint) apply(e *edit) error {
	text, err := requireText(op.Text)
	if err != nil {
		return err
	}
	if _, err := schedulePtr(&e.doc, domain.PointID(op.Parent, op.Index)); err != nil {
		return err
	}
	p := &e.doc.Content[op.Parent].Points[op.Index]
	if p.Text == text {
		e.noop = true
		return nil
	}
	p.Text = text
	return nil
}

// DeletePoint removes a point. Removing the last one makes the discussion
// schedulable again, due today at the base code.
type DeletePoint struct {
	Parent int
	Index  int
}

func (op DeletePoint) apply(e *edit) error {
	if _, err := schedulePtr(&e.doc, domain.PointID(op.Parent, op.Index)); err != nil {
		return err
	}
	d := &e.doc.Content[op.Parent]
	d.Points = append(d.Points[:op.Index], d.Points[op.Index+1:]...)
	if !d.HasPoints() {
		d.Schedule = e.fresh()
	}
	e.track = func(t *Tracker) { t.pointRemoved(op.Parent, op.Index) }
	return nil
}

// SetDate sets a record's due date by hand. A record without a code gets the
// base code.
type SetDate struct {
	Target domain.Identity
	Date   string
}

func (op SetDate) apply(e *edit) error {
	date := strings.TrimSpace(op.Date)
	if _, err := domain.ParseDate(date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", domain.ErrValidation, op.Date)
	}
	s, err := e.ownSchedule(op.Target)
	if err != nil {
		return err
	}
	if s.Finished {
		return fmt.Errorf("%w: %s is finished", domain.ErrInvariantViolation, op.Target)
	}
	if domain.Deref(s.Date) == date && s.RepetitionCode != nil {
		e.noop = true
		return nil
	}
	s.Date = &date
	if domain.Deref(s.RepetitionCode) == "" {
		s.RepetitionCode = domain.StringPtr(e.vocab.Base())
	}
	return nil
}

// ChangeCode moves a record to another code, due today plus its offset.
type ChangeCode struct {
	Target domain.Identity
	Code   string
}

func (op ChangeCode) apply(e *edit) error {
	s, err := e.ownSchedule(op.Target)
	if err != nil {
		return err
	}
	next, changed, err := e.vocab.Advance(*s, op.Code, e.today)
	if err != nil {
		return err
	}
	if !changed {
		e.noop = true
		return nil
	}
	*s = next
	return nil
}

// ToggleFinish finishes an open record or returns a finished one to the cycle.
type ToggleFinish struct {
	Target domain.Identity
}

func (op ToggleFinish) apply(e *edit) error {
	s, err := e.ownSchedule(op.Target)
	if err != nil {
		return err
	}
	*s = e.vocab.Toggle(*s, e.today)
	return nil
}

type SetSubjectIcon struct {
	Icon string
}

func (op SetSubjectIcon) apply(e *edit) error {
	icon := strings.TrimSpace(op.Icon)
	if icon == "" {
		return fmt.Errorf("%w: icon is empty", domain.ErrValidation)
	}
	if e.doc.Metadata.Icon == icon {
		e.noop = true
		return nil
	}
	e.doc.Metadata.Icon = icon
	return nil
}

// IsRejected reports whether err is an edit the reconciler refused, as
// opposed to a storage failure.
func IsRejected(err error) bool {
	return errors.Is(err, domain.ErrInvariantViolation) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound)
}
