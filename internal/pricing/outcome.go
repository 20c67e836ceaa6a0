package pricing

import "github.com/iliyamo/bus-tour-reservation/internal/model"

// Outcome names which of the two discount channels end up in the total.
type Outcome int

const (
	NoDiscount Outcome = iota
	GroupOnly
	ServiceOnly
	Both
)

func (o Outcome) String() string {
	switch o {
	case GroupOnly:
		return "group_only"
	case ServiceOnly:
		return "service_only"
	case Both:
		return "both"
	default:
		return "none"
	}
}

// MarshalText renders the outcome by name in JSON payloads.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// AppliesGroup reports whether the group rule amount is subtracted.
func (o Outcome) AppliesGroup() bool { return o == GroupOnly || o == Both }

// AppliesService reports whether the service amount is subtracted.
func (o Outcome) AppliesService() bool { return o == ServiceOnly || o == Both }

// decide is the accumulation decision table.
//
//	group  service  accumulable  priority   -> outcome
//	no     no       -            -          NoDiscount
//	yes    no       -            -          GroupOnly
//	no     yes      -            -          ServiceOnly
//	yes    yes      yes          -          Both
//	yes    yes      no           servicio   ServiceOnly
//	yes    yes      no           grupo      GroupOnly
func decide(group, service, accumulable bool, priority string) Outcome {
	switch {
	case group && service && accumulable:
		return Both
	case group && service:
		if priority == model.PriorityGroup {
			return GroupOnly
		}
		return ServiceOnly
	case group:
		return GroupOnly
	case service:
		return ServiceOnly
	default:
		return NoDiscount
	}
}
