package pricing

import "fmt"

// Travelers holds the head count per traveler category.
type Travelers struct {
	Adults         int `json:"adultos"`
	Residents      int `json:"residentes"`
	Children5to12  int `json:"ninos_5_12"`
	ChildrenUnder5 int `json:"ninos_menores"`
}

// PayingSeats counts travelers occupying a priced seat. Children under
// five travel free and are left out.
func (t Travelers) PayingSeats() int {
	return t.Adults + t.Residents + t.Children5to12
}

// Total counts every traveler including children under five.
func (t Travelers) Total() int {
	return t.PayingSeats() + t.ChildrenUnder5
}

// Validate rejects negative counts and counts above max per category.
// A max of zero or less disables the upper bound.
func (t Travelers) Validate(max int) error {
	counts := []struct {
		name string
		n    int
	}{
		{"adultos", t.Adults},
		{"residentes", t.Residents},
		{"ninos_5_12", t.Children5to12},
		{"ninos_menores", t.ChildrenUnder5},
	}
	for _, c := range counts {
		if c.n < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidTravelers, c.name)
		}
		if max > 0 && c.n > max {
			return fmt.Errorf("%w: %s exceeds %d", ErrInvalidTravelers, c.name, max)
		}
	}
	return nil
}
