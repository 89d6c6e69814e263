package holiday

import "time"

// Type classifies a calendar date for pay-rate purposes.
type Type string

const (
	TypeRegular           Type = "regular"
	TypeSpecialNonWorking Type = "special_non_working"
	TypeSpecial           Type = "special"
	TypeNone              Type = "none"
)

// Rank orders holiday types; higher wins when two entries share a date.
func (t Type) Rank() int {
	switch t {
	case TypeRegular:
		return 3
	case TypeSpecialNonWorking:
		return 2
	case TypeSpecial:
		return 1
	}
	return 0
}

func (t Type) Valid() bool {
	return t.Rank() > 0
}

// Entry is one row of the holiday calendar. Date is kept as received from
// the source and normalized on lookup.
type Entry struct {
	ID        string
	Date      string
	Name      string
	Type      Type
	CreatedAt time.Time
}
