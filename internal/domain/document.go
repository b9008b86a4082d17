package domain

import "github.com/google/uuid"

// Schedule is the repetition state shared by discussions and points.
type Schedule struct {
	Date           *string `json:"date"`
	RepetitionCode *string `json:"repetition_code"`
	Finished       bool    `json:"finished,omitempty"`
	FinishedDate   *string `json:"finished_date,omitempty"`
}

// Point is identified on disk by its position in the parent's points list.
// ID is an in-memory handle only and is never serialized.
type Point struct {
	ID   uuid.UUID `json:"-"`
	Text string    `json:"point_text"`
	Schedule
}

type Discussion struct {
	Text string `json:"discussion"`
	Schedule
	Points []Point `json:"points"`
}

// HasPoints reports whether scheduling lives on the points instead of the discussion.
func (d Discussion) HasPoints() bool {
	return len(d.Points) > 0
}

// PointIndex returns the position of the point with the given id, or -1.
func (d Discussion) PointIndex(id uuid.UUID) int {
	for i, p := range d.Points {
		if p.ID == id {
			return i
		}
	}
	return -1
}

type Metadata struct {
	EarliestDate *string `json:"earliest_date"`
	EarliestCode *string `json:"earliest_code"`
	Icon         string  `json:"icon,omitempty"`
}

// Document is the content of one subject file.
type Document struct {
	Content  []Discussion `json:"content"`
	Metadata Metadata     `json:"metadata"`
}

// NewDocument returns the content written for a freshly created subject.
func NewDocument(icon string) Document {
	return Document{
		Content:  []Discussion{},
		Metadata: Metadata{Icon: icon},
	}
}

// Normalize replaces nil slices with empty ones so they encode as [] and
// assigns ids to points that lack one.
func (d *Document) Normalize() {
	if d.Content == nil {
		d.Content = []Discussion{}
	}
	for i := range d.Content {
		if d.Content[i].Points == nil {
			d.Content[i].Points = []Point{}
		}
		for j := range d.Content[i].Points {
			if d.Content[i].Points[j].ID == uuid.Nil {
				d.Content[i].Points[j].ID = uuid.New()
			}
		}
	}
}

// Clone returns a deep copy. Point ids are preserved.
func (d Document) Clone() Document {
	out := Document{
		Content:  make([]Discussion, len(d.Content)),
		Metadata: Metadata{
			EarliestDate: clonePtr(d.Metadata.EarliestDate),
			EarliestCode: clonePtr(d.Metadata.EarliestCode),
			Icon:         d.Metadata.Icon,
		},
	}
	for i, disc := range d.Content {
		out.Content[i] = disc.Clone()
	}
	return out
}

func (d Discussion) Clone() Discussion {
	out := Discussion{
		Text:     d.Text,
		Schedule: d.Schedule.Clone(),
		Points:   make([]Point, len(d.Points)),
	}
	for i, p := range d.Points {
		out.Points[i] = Point{ID: p.ID, Text: p.Text, Schedule: p.Schedule.Clone()}
	}
	return out
}

func (s Schedule) Clone() Schedule {
	return Schedule{
		Date:           clonePtr(s.Date),
		RepetitionCode: clonePtr(s.RepetitionCode),
		Finished:       s.Finished,
		FinishedDate:   clonePtr(s.FinishedDate),
	}
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
