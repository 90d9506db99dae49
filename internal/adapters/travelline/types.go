package travelline

import (
	"strings"
	"time"

	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

// Wire payloads for the partner inventory API and their domain mappings.

type cityPayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
}

func (p cityPayload) toDomain() domain.City {
	return domain.City{ID: p.ID, Name: p.Name, Country: strings.ToUpper(p.CountryCode)}
}

type imagePayload struct {
	URL string `json:"url"`
}

func imageURLs(in []imagePayload) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, img := range in {
		if img.URL != "" {
			out = append(out, img.URL)
		}
	}
	return out
}

type addressPayload struct {
	AddressLine string `json:"addressLine"`
	CityName    string `json:"cityName"`
}

func (a addressPayload) toDomain() domain.Address {
	return domain.Address{Line: a.AddressLine, City: a.CityName}
}

func (a *addressPayload) toDomainPtr() *domain.Address {
	if a == nil {
		return nil
	}
	d := a.toDomain()
	return &d
}

type roomTypePayload struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Images    []imagePayload  `json:"images"`
	Amenities []string        `json:"amenities"`
	Address   *addressPayload `json:"address,omitempty"`
}

type propertyPayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	StarRating    int    `json:"starRating"`
	MultiLocation bool   `json:"multiLocation"`
	Contact       struct {
		Address addressPayload `json:"address"`
	} `json:"contact"`
	Images    []imagePayload    `json:"images"`
	Amenities []string          `json:"amenities"`
	RoomTypes []roomTypePayload `json:"roomTypes"`
}

func (p propertyPayload) toDomain() domain.PropertyContent {
	rts := make([]domain.RoomTypeContent, 0, len(p.RoomTypes))
	for _, rt := range p.RoomTypes {
		rts = append(rts, domain.RoomTypeContent{
			ID:        rt.ID,
			Name:      rt.Name,
			Images:    imageURLs(rt.Images),
			Amenities: rt.Amenities,
			Address:   rt.Address.toDomainPtr(),
		})
	}
	return domain.PropertyContent{
		ID:            p.ID,
		Name:          p.Name,
		Stars:         p.StarRating,
		Address:       p.Contact.Address.toDomain(),
		MultiLocation: p.MultiLocation,
		Images:        imageURLs(p.Images),
		Amenities:     p.Amenities,
		RoomTypes:     rts,
	}
}

type roomStayPayload struct {
	PropertyID int64 `json:"propertyId"`
	RoomType   struct {
		ID      string          `json:"id"`
		Name    string          `json:"name"`
		Images  []imagePayload  `json:"images"`
		Address *addressPayload `json:"address,omitempty"`
	} `json:"roomType"`
	RatePlan struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"ratePlan"`
	Total struct {
		PriceBeforeTax *float64 `json:"priceBeforeTax"`
		PriceAfterTax  *float64 `json:"priceAfterTax"`
		Currency       string   `json:"currency"`
	} `json:"total"`
	MealPlanCode     string `json:"mealPlanCode"`
	IncludedServices []struct {
		Code string `json:"code"`
	} `json:"includedServices"`
	CancellationPolicy struct {
		FreeCancellationPossible bool       `json:"freeCancellationPossible"`
		FreeCancellationDeadline *time.Time `json:"freeCancellationDeadline"`
		PenaltyAmount            *float64   `json:"penaltyAmount"`
	} `json:"cancellationPolicy"`
	PaymentType string `json:"paymentType"`
	Guests      struct {
		AdultCount int   `json:"adultCount"`
		ChildAges  []int `json:"childAges"`
	} `json:"guests"`
	AvailableQuantity int    `json:"availableQuantity"`
	Checksum          string `json:"checksum"`
}

func (p roomStayPayload) toDomain() domain.RoomStayOffer {
	services := make([]string, 0, len(p.IncludedServices))
	for _, s := range p.IncludedServices {
		if s.Code != "" {
			services = append(services, s.Code)
		}
	}
	return domain.RoomStayOffer{
		PropertyID:     p.PropertyID,
		RoomTypeID:     p.RoomType.ID,
		RoomTypeName:   p.RoomType.Name,
		RoomImages:     imageURLs(p.RoomType.Images),
		RoomAddress:    p.RoomType.Address.toDomainPtr(),
		RatePlanID:     p.RatePlan.ID,
		RatePlanName:   p.RatePlan.Name,
		PriceBeforeTax: p.Total.PriceBeforeTax,
		PriceAfterTax:  p.Total.PriceAfterTax,
		Currency:       p.Total.Currency,
		MealCode:       p.MealPlanCode,
		IncludedServices: services,
		Cancellation: domain.CancellationPolicy{
			Free:     p.CancellationPolicy.FreeCancellationPossible,
			Deadline: p.CancellationPolicy.FreeCancellationDeadline,
			Penalty:  p.CancellationPolicy.PenaltyAmount,
		},
		PaymentType: p.PaymentType,
		Guests: domain.GuestPlacement{
			Adults:    p.Guests.AdultCount,
			ChildAges: p.Guests.ChildAges,
		},
		Available: p.AvailableQuantity,
		Checksum:  p.Checksum,
	}
}

type roomStaysResponse struct {
	RoomStays []roomStayPayload `json:"roomStays"`
}

func (r roomStaysResponse) toDomain() []domain.RoomStayOffer {
	out := make([]domain.RoomStayOffer, 0, len(r.RoomStays))
	for _, rs := range r.RoomStays {
		out = append(out, rs.toDomain())
	}
	return out
}

type priceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type searchRequest struct {
	PropertyIDs   []int64     `json:"propertyIds"`
	ArrivalDate   string      `json:"arrivalDate"`
	DepartureDate string      `json:"departureDate"`
	Adults        int         `json:"adults"`
	ChildAges     []int       `json:"childAges,omitempty"`
	Currency      string      `json:"currency"`
	PriceRange    *priceRange `json:"priceRange,omitempty"`
}

// newSearchRequest builds the batched pricing query body. The wide price
// band keeps the upstream filter from excluding anything while still
// satisfying its required field.
func newSearchRequest(ids []int64, stay domain.StayQuery) searchRequest {
	return searchRequest{
		PropertyIDs:   ids,
		ArrivalDate:   stay.Arrival.UTC().Format("2006-01-02"),
		DepartureDate: stay.Departure.UTC().Format("2006-01-02"),
		Adults:        stay.Adults,
		ChildAges:     stay.ChildAges,
		Currency:      strings.ToUpper(stay.Currency),
		PriceRange:    &priceRange{Min: 0, Max: 10_000_000},
	}
}
