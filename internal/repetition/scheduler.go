package repetition

import (
	"fmt"
	"time"

	"repnote/internal/domain"
)

// Advance moves a record to newCode. The due date is today plus the code's
// offset, never relative to the previous date. changed is false when the
// record already carries newCode and the recomputed date, in which case s is
// returned as is. Advance is pure; confirming the change is up to the caller.
func (v *Vocabulary) Advance(s domain.Schedule, newCode string, today time.Time) (out domain.Schedule, changed bool, err error) {
	if newCode == CodeFinish {
		return s, false, fmt.Errorf("%w: %s is reached through finish only", domain.ErrInvariantViolation, CodeFinish)
	}
	days, ok := v.Offset(newCode)
	if !ok {
		return s, false, fmt.Errorf("%w: unknown repetition code %q", domain.ErrInvariantViolation, newCode)
	}
	if s.Finished {
		return s, false, fmt.Errorf("%w: record is finished", domain.ErrInvariantViolation)
	}

	newDate := domain.FormatDate(domain.AddDays(today, days))
	if domain.Deref(s.RepetitionCode) == newCode && domain.Deref(s.Date) == newDate {
		return s, false, nil
	}

	out = s.Clone()
	out.Date = &newDate
	out.RepetitionCode = domain.StringPtr(newCode)
	return out, true, nil
}

// Finish marks a record done. It drops out of the earliest-date rollup and
// the due filters but stays visible, sorted last.
func Finish(s domain.Schedule, today time.Time) domain.Schedule {
	return domain.Schedule{
		Date:           nil,
		RepetitionCode: domain.StringPtr(CodeFinish),
		Finished:       true,
		FinishedDate:   domain.DatePtr(today),
	}
}

// Unfinish returns a finished record to the cycle at the base code, due today.
func (v *Vocabulary) Unfinish(s domain.Schedule, today time.Time) domain.Schedule {
	return domain.Schedule{
		Date:           domain.DatePtr(today),
		RepetitionCode: domain.StringPtr(v.Base()),
		Finished:       false,
		FinishedDate:   nil,
	}
}

// Toggle flips the finished state.
func (v *Vocabulary) Toggle(s domain.Schedule, today time.Time) domain.Schedule {
	if s.Finished {
		return v.Unfinish(s, today)
	}
	return Finish(s, today)
}
