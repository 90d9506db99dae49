package domain

// Caller-facing read models produced by the offer builder. The thin
// request-handling layer serializes these as-is.

type CancellationView struct {
	Free      bool     `json:"free"`
	FreeUntil string   `json:"freeUntil,omitempty"`
	Penalty   *float64 `json:"penalty,omitempty"`
}

// PropertyCard is one row in a city listing: a property with its single
// cheapest offer.
type PropertyCard struct {
	PropertyID   int64            `json:"propertyId"`
	Name         string           `json:"name"`
	Stars        int              `json:"stars"`
	Address      string           `json:"address"`
	Thumbnail    string           `json:"thumbnail,omitempty"`
	RoomName     string           `json:"roomName"`
	Meal         string           `json:"meal,omitempty"`
	Cancellation CancellationView `json:"cancellation"`
	PerNight     float64          `json:"perNight"`
	Total        float64          `json:"total"`
	Currency     string           `json:"currency"`
	Nights       int              `json:"nights"`
	Checksum     string           `json:"checksum"`
}

// OfferView is one bookable option on a property's offer page.
type OfferView struct {
	RoomTypeID   string           `json:"roomTypeId"`
	RoomName     string           `json:"roomName"`
	Images       []string         `json:"images,omitempty"`
	RatePlanID   string           `json:"ratePlanId"`
	Meal         string           `json:"meal,omitempty"`
	Cancellation CancellationView `json:"cancellation"`
	PaymentType  string           `json:"paymentType,omitempty"`
	PerNight     float64          `json:"perNight"`
	Total        float64          `json:"total"`
	Currency     string           `json:"currency"`
	Available    int              `json:"available"`
	Checksum     string           `json:"checksum"`
}

// PropertyHeader summarizes a property above its offer list.
type PropertyHeader struct {
	PropertyID int64   `json:"propertyId"`
	Name       string  `json:"name"`
	Stars      int     `json:"stars"`
	Address    string  `json:"address"`
	Thumbnail  string  `json:"thumbnail,omitempty"`
	MinPrice   float64 `json:"minPrice"` // minimum per-night price across offers
	Currency   string  `json:"currency"`
}

type OfferPage struct {
	Header PropertyHeader `json:"header"`
	Offers []OfferView    `json:"offers"`
}
