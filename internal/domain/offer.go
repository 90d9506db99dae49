package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// RoomStayOffer is one priced, bookable room/rate combination returned by
// the upstream pricing engine. Offers are ephemeral: they live only inside
// the short pricing-cache window because price and availability drift.
type RoomStayOffer struct {
	PropertyID   int64
	RoomTypeID   string
	RoomTypeName string
	RoomImages   []string
	RoomAddress  *Address
	RatePlanID   string
	RatePlanName string

	PriceBeforeTax *float64
	PriceAfterTax  *float64
	Currency       string

	MealCode         string
	IncludedServices []string
	Cancellation     CancellationPolicy
	PaymentType      string
	Guests           GuestPlacement
	Available        int

	// Checksum is issued by the pricing engine and must be echoed back
	// verbatim when booking this exact offer.
	Checksum string
}

// Total returns the comparable total price: before-tax preferred, after-tax
// as fallback, +Inf when the offer carries no usable price at all.
func (o RoomStayOffer) Total() float64 {
	if o.PriceBeforeTax != nil {
		return *o.PriceBeforeTax
	}
	if o.PriceAfterTax != nil {
		return *o.PriceAfterTax
	}
	return math.Inf(1)
}

type CancellationPolicy struct {
	Free     bool
	Deadline *time.Time
	Penalty  *float64
}

type GuestPlacement struct {
	Adults    int
	ChildAges []int
}

// StayQuery identifies one dated, guest-qualified pricing question.
type StayQuery struct {
	Arrival   time.Time
	Departure time.Time
	Adults    int
	ChildAges []int
	Currency  string
}

// Nights is the UTC calendar-day difference, never less than one.
func (q StayQuery) Nights() int {
	a := dateUTC(q.Arrival)
	d := dateUTC(q.Departure)
	n := int(d.Sub(a).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

func dateUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Fingerprint returns the normalized dedup key for one property + stay:
// dates at day precision, child ages sorted, currency upper-cased. Two
// queries with the same fingerprint are "the same request".
func (q StayQuery) Fingerprint(propertyID int64) string {
	ages := append([]int(nil), q.ChildAges...)
	sort.Ints(ages)
	parts := make([]string, len(ages))
	for i, a := range ages {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return fmt.Sprintf("%d:%s:%s:%d:%s:%s",
		propertyID,
		dateUTC(q.Arrival).Format("2006-01-02"),
		dateUTC(q.Departure).Format("2006-01-02"),
		q.Adults,
		strings.Join(parts, ","),
		strings.ToUpper(q.Currency),
	)
}
