package reconcile

import (
	"fmt"
	"strings"

	"repnote/internal/domain"
)

type DateFilter string

const (
	DateAll          DateFilter = "all"
	DateToday        DateFilter = "today"
	DatePastAndToday DateFilter = "past_and_today"
)

// ParseDateFilter accepts the config spelling of a date filter.
func ParseDateFilter(s string) (DateFilter, error) {
	switch f := DateFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", DateAll:
		return DateAll, nil
	case DateToday, DatePastAndToday:
		return f, nil
	}
	return DateAll, fmt.Errorf("%w: unknown date filter %q", domain.ErrValidation, s)
}

// Next cycles all -> today -> past_and_today -> all.
func (f DateFilter) Next() DateFilter {
	switch f {
	case DateAll:
		return DateToday
	case DateToday:
		return DatePastAndToday
	}
	return DateAll
}

// Filters narrow the displayed content. Both are optional and compose by
// intersection.
type Filters struct {
	Query string
	Date  DateFilter
}

func (f Filters) searching() bool {
	return strings.TrimSpace(f.Query) != ""
}

// candidate is a discussion that survived filtering. disc may hold a subset
// of the original points; index is the discussion's position in the loaded
// document.
type candidate struct {
	index int
	disc  domain.Discussion
}

func applyFilters(content []domain.Discussion, f Filters, today string) []candidate {
	out := make([]candidate, 0, len(content))
	for i, d := range content {
		out = append(out, candidate{index: i, disc: d})
	}
	if f.searching() {
		out = searchFilter(out, strings.ToLower(strings.TrimSpace(f.Query)))
	}
	if f.Date != "" && f.Date != DateAll {
		out = dateFilter(out, f.Date, today)
	}
	return out
}

// searchFilter keeps a discussion whole when its own text matches, otherwise
// keeps only its matching points.
func searchFilter(in []candidate, query string) []candidate {
	out := make([]candidate, 0, len(in))
	for _, c := range in {
		if strings.Contains(strings.ToLower(c.disc.Text), query) {
			out = append(out, c)
			continue
		}
		var points []domain.Point
		for _, p := range c.disc.Points {
			if strings.Contains(strings.ToLower(p.Text), query) {
				points = append(points, p)
			}
		}
		if len(points) > 0 {
			c.disc.Points = points
			out = append(out, c)
		}
	}
	return out
}

func dateFilter(in []candidate, f DateFilter, today string) []candidate {
	out := make([]candidate, 0, len(in))
	for _, c := range in {
		if c.disc.HasPoints() {
			var points []domain.Point
			for _, p := range c.disc.Points {
				if due(p.Schedule, f, today) {
					points = append(points, p)
				}
			}
			if len(points) > 0 {
				c.disc.Points = points
				out = append(out, c)
			}
			continue
		}
		if due(c.disc.Schedule, f, today) {
			out = append(out, c)
		}
	}
	return out
}

// due reports whether a record passes the date filter. Finished and undated
// records never do.
func due(s domain.Schedule, f DateFilter, today string) bool {
	if s.Finished || s.Date == nil || *s.Date == "" {
		return false
	}
	switch f {
	case DateToday:
		return *s.Date == today
	case DatePastAndToday:
		return *s.Date <= today
	}
	return true
}
