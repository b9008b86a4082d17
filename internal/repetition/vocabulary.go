package repetition

import (
	"fmt"

	"repnote/internal/domain"
)

// CodeFinish is the terminal code. It has no offset and sorts last.
const CodeFinish = "Finish"

// Code is one step of the schedule and its offset in days.
type Code struct {
	Name string `toml:"code"`
	Days int    `toml:"days"`
}

// DefaultCodes is the stock vocabulary, shortest interval first.
var DefaultCodes = []Code{
	{Name: "R0D", Days: 0},
	{Name: "R1D", Days: 1},
	{Name: "R3D", Days: 3},
	{Name: "R7D", Days: 7},
	{Name: "R7D1", Days: 7},
	{Name: "R7D2", Days: 7},
	{Name: "R7D3", Days: 7},
	{Name: "R30D", Days: 30},
}

// Vocabulary is the ordered set of schedulable codes. The first code is the
// base code given to new and unfinished records.
type Vocabulary struct {
	codes []Code
	days  map[string]int
}

// NewVocabulary validates codes. Every code needs a numeric run so it can be
// ranked, a non-negative offset, and a unique name; Finish is implicit.
func NewVocabulary(codes []Code) (*Vocabulary, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: repetition vocabulary is empty", domain.ErrValidation)
	}
	v := &Vocabulary{
		codes: make([]Code, 0, len(codes)),
		days:  make(map[string]int, len(codes)),
	}
	for _, c := range codes {
		switch {
		case c.Name == CodeFinish:
			return nil, fmt.Errorf("%w: %s is reserved", domain.ErrValidation, CodeFinish)
		case c.Days < 0:
			return nil, fmt.Errorf("%w: code %q has negative offset", domain.ErrValidation, c.Name)
		}
		if _, ok := leadingNumber(c.Name); !ok {
			return nil, fmt.Errorf("%w: code %q has no numeric part", domain.ErrValidation, c.Name)
		}
		if _, dup := v.days[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate code %q", domain.ErrValidation, c.Name)
		}
		v.days[c.Name] = c.Days
		v.codes = append(v.codes, c)
	}
	return v, nil
}

// DefaultVocabulary panics only if DefaultCodes is broken.
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultCodes)
	if err != nil {
		panic(err)
	}
	return v
}

// Base returns the code assigned on creation and on unfinish.
func (v *Vocabulary) Base() string {
	return v.codes[0].Name
}

// Offset returns the day offset of a schedulable code.
func (v *Vocabulary) Offset(code string) (int, bool) {
	d, ok := v.days[code]
	return d, ok
}

// Names lists every code in display order, Finish last.
func (v *Vocabulary) Names() []string {
	out := make([]string, 0, len(v.codes)+1)
	for _, c := range v.codes {
		out = append(out, c.Name)
	}
	return append(out, CodeFinish)
}

// Next returns the code after cur, wrapping to the base code. Finish is skipped.
func (v *Vocabulary) Next(cur string) string {
	for i, c := range v.codes {
		if c.Name == cur {
			return v.codes[(i+1)%len(v.codes)].Name
		}
	}
	return v.Base()
}
