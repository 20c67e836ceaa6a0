// Package pricing computes reservation prices: base seats at the adult
// rate, per-category discounts, the best matching group rule and the
// service's own discount, combined through an explicit decision table.
//
// Everything here is pure; callers load services and rules and pass them in.
package pricing

import "errors"

// ErrServiceNotFound is returned when no service was supplied.
var ErrServiceNotFound = errors.New("service not found")

// ErrInvalidTravelers is returned for negative or out-of-range traveler counts.
var ErrInvalidTravelers = errors.New("invalid traveler counts")

// ErrInvalidService is returned when a service carries negative prices or
// a discount percentage outside 0..100.
var ErrInvalidService = errors.New("invalid service pricing")
