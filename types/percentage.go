package types

import (
	"fmt"
	"strconv"
)

// Percentage is a whole sync percentage in [0, 100], or not applicable when
// the inputs do not allow one to be computed.
type Percentage struct {
	value      uint8
	applicable bool
}

// NotApplicable is the zero Percentage.
var NotApplicable = Percentage{}

// PercentOf returns an applicable percentage, clamped to 100.
func PercentOf(v uint8) Percentage {
	if v > 100 {
		v = 100
	}
	return Percentage{value: v, applicable: true}
}

func (p Percentage) Value() (uint8, bool) {
	return p.value, p.applicable
}

func (p Percentage) Applicable() bool {
	return p.applicable
}

func (p Percentage) String() string {
	if !p.applicable {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", p.value)
}

func (p Percentage) MarshalJSON() ([]byte, error) {
	if !p.applicable {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(p.value))), nil
}

func (p *Percentage) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NotApplicable
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 8)
	if err != nil {
		return NewParseError("percentage", string(data), err)
	}
	*p = PercentOf(uint8(v))
	return nil
}

// MaxPercentage returns the highest applicable percentage, or 0% when none
// of the inputs is applicable.
func MaxPercentage(ps []Percentage) Percentage {
	highest := PercentOf(0)
	for _, p := range ps {
		if p.applicable && p.value > highest.value {
			highest = p
		}
	}
	return highest
}
