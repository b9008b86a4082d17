package repetition

import "repnote/internal/domain"

// Aggregate returns the soonest outstanding date and its code across the
// discussions. A discussion with points contributes its points; one without
// contributes itself. Finished and undated records are skipped. Dates are
// canonical, so string order is date order. Ties keep the first candidate.
func Aggregate(discussions []domain.Discussion) (date, code *string) {
	consider := func(s domain.Schedule) {
		if s.Finished || s.Date == nil || *s.Date == "" {
			return
		}
		if date == nil || *s.Date < *date {
			d := *s.Date
			date = &d
			code = nil
			if s.RepetitionCode != nil {
				c := *s.RepetitionCode
				code = &c
			}
		}
	}
	for _, d := range discussions {
		if d.HasPoints() {
			for _, p := range d.Points {
				consider(p.Schedule)
			}
			continue
		}
		consider(d.Schedule)
	}
	return date, code
}

// RefreshMetadata recomputes the cached rollup of doc in place.
func RefreshMetadata(doc *domain.Document) {
	doc.Metadata.EarliestDate, doc.Metadata.EarliestCode = Aggregate(doc.Content)
}
