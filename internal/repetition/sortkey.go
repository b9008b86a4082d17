package repetition

import (
	"math"
	"time"

	"repnote/internal/domain"
)

// MaxDate ranks undated records after every dated one.
var MaxDate = time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC)

// Key orders records by repetition bucket first and due date second. An R1D
// record due next month still ranks before an R7D record due tomorrow.
type Key struct {
	Order float64
	Date  time.Time
}

// KeyOf derives the sort key of a record.
func KeyOf(s domain.Schedule) Key {
	k := Key{Order: math.Inf(1), Date: MaxDate}
	if code := domain.Deref(s.RepetitionCode); code != "" && code != CodeFinish {
		if n, ok := leadingNumber(code); ok {
			k.Order = float64(n)
		}
	}
	if s.Date != nil {
		if t, err := time.Parse(domain.DateLayout, *s.Date); err == nil {
			k.Date = t
		}
	}
	return k
}

// Compare returns -1, 0 or +1.
func (k Key) Compare(o Key) int {
	switch {
	case k.Order < o.Order:
		return -1
	case k.Order > o.Order:
		return 1
	}
	return k.Date.Compare(o.Date)
}

func Less(a, b domain.Schedule) bool {
	return KeyOf(a).Compare(KeyOf(b)) < 0
}

// leadingNumber returns the first run of digits in code: R30D is 30, R7D2 is 7.
// Runs too long for an int saturate at math.MaxInt.
func leadingNumber(code string) (int, bool) {
	start := -1
	n := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= '0' && c <= '9' {
			if start < 0 {
				start = i
			}
			d := int(c - '0')
			if n > (math.MaxInt-d)/10 {
				n = math.MaxInt
			} else {
				n = n*10 + d
			}
			continue
		}
		if start >= 0 {
			break
		}
	}
	return n, start >= 0
}
