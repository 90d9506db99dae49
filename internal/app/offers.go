package app

import (
	"math"
	"sort"

	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

// fallback when neither the live offer nor the content knows the room name
const genericRoomName = "Номер"

// mealLabels maps upstream meal plan codes to display labels. Unknown
// codes resolve to an empty label, never an error.
var mealLabels = map[string]string{
	"RO":  "Без питания",
	"BB":  "Завтрак включён",
	"HB":  "Полупансион",
	"FB":  "Полный пансион",
	"AI":  "Всё включено",
	"UAI": "Ультра всё включено",
}

// OfferBuilder combines cached content with live pricing into the views
// the booking site renders. rewriteImage routes image URLs through the
// local image proxy; identity when no proxy is wired.
type OfferBuilder struct {
	rewriteImage func(string) string
}

func NewOfferBuilder(rewriteImage func(string) string) *OfferBuilder {
	if rewriteImage == nil {
		rewriteImage = func(s string) string { return s }
	}
	return &OfferBuilder{rewriteImage: rewriteImage}
}

// Cards builds one listing card per property that has both content and a
// priced offer; properties missing either are silently excluded. The list
// comes back sorted ascending by per-night price.
func (b *OfferBuilder) Cards(contents map[int64]domain.ContentResult, cheapest map[int64]domain.RoomStayOffer, stay domain.StayQuery) []domain.PropertyCard {
	nights := stay.Nights()
	cards := make([]domain.PropertyCard, 0, len(cheapest))
	for id, offer := range cheapest {
		res, ok := contents[id]
		if !ok {
			continue
		}
		total := offer.Total()
		if math.IsInf(total, 1) {
			continue // offer carries no usable price
		}
		content := res.Content
		cards = append(cards, domain.PropertyCard{
			PropertyID:   id,
			Name:         content.Name,
			Stars:        content.Stars,
			Address:      b.address(content, offer),
			Thumbnail:    b.thumbnail(content),
			RoomName:     roomName(content, offer),
			Meal:         mealLabel(offer),
			Cancellation: cancellationView(offer.Cancellation),
			PerNight:     perNight(total, nights),
			Total:        total,
			Currency:     offer.Currency,
			Nights:       nights,
			Checksum:     offer.Checksum,
		})
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].PerNight != cards[j].PerNight {
			return cards[i].PerNight < cards[j].PerNight
		}
		return cards[i].PropertyID < cards[j].PropertyID
	})
	return cards
}

// Page builds the offer page for one property: a header summarizing the
// property plus one entry per available, priced offer.
func (b *OfferBuilder) Page(content domain.PropertyContent, offers []domain.RoomStayOffer, stay domain.StayQuery) domain.OfferPage {
	nights := stay.Nights()
	views := make([]domain.OfferView, 0, len(offers))
	minPrice := math.Inf(1)
	currency := ""
	for _, offer := range offers {
		if offer.Available <= 0 {
			continue
		}
		total := offer.Total()
		if math.IsInf(total, 1) {
			continue
		}
		pn := perNight(total, nights)
		if pn < minPrice {
			minPrice = pn
		}
		if currency == "" {
			currency = offer.Currency
		}
		views = append(views, domain.OfferView{
			RoomTypeID:   offer.RoomTypeID,
			RoomName:     roomName(content, offer),
			Images:       b.offerImages(content, offer),
			RatePlanID:   offer.RatePlanID,
			Meal:         mealLabel(offer),
			Cancellation: cancellationView(offer.Cancellation),
			PaymentType:  offer.PaymentType,
			PerNight:     pn,
			Total:        total,
			Currency:     offer.Currency,
			Available:    offer.Available,
			Checksum:     offer.Checksum,
		})
	}
	if math.IsInf(minPrice, 1) {
		minPrice = 0
	}
	return domain.OfferPage{
		Header: domain.PropertyHeader{
			PropertyID: content.ID,
			Name:       content.Name,
			Stars:      content.Stars,
			Address:    content.Address.Display(),
			Thumbnail:  b.thumbnail(content),
			MinPrice:   minPrice,
			Currency:   currency,
		},
		Offers: views,
	}
}

// roomName: live offer name, then the matching content room type, then a
// generic placeholder.
func roomName(content domain.PropertyContent, offer domain.RoomStayOffer) string {
	if offer.RoomTypeName != "" {
		return offer.RoomTypeName
	}
	if rt, ok := content.RoomType(offer.RoomTypeID); ok && rt.Name != "" {
		return rt.Name
	}
	return genericRoomName
}

// address: for multi-location properties, a room-level override from the
// offer or the matching content room type wins; otherwise the property's
// primary contact address.
func (b *OfferBuilder) address(content domain.PropertyContent, offer domain.RoomStayOffer) string {
	if content.MultiLocation {
		if offer.RoomAddress != nil && !offer.RoomAddress.Empty() {
			return offer.RoomAddress.Display()
		}
		if rt, ok := content.RoomType(offer.RoomTypeID); ok && rt.Address != nil && !rt.Address.Empty() {
			return rt.Address.Display()
		}
	}
	return content.Address.Display()
}

// offerImages: content room type images first, then the offer's own room
// images, then property-level images.
func (b *OfferBuilder) offerImages(content domain.PropertyContent, offer domain.RoomStayOffer) []string {
	if rt, ok := content.RoomType(offer.RoomTypeID); ok && len(rt.Images) > 0 {
		return b.rewriteAll(rt.Images)
	}
	if len(offer.RoomImages) > 0 {
		return b.rewriteAll(offer.RoomImages)
	}
	return b.rewriteAll(content.Images)
}

func (b *OfferBuilder) rewriteAll(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = b.rewriteImage(u)
	}
	return out
}

func (b *OfferBuilder) thumbnail(content domain.PropertyContent) string {
	if len(content.Images) == 0 {
		return ""
	}
	return b.rewriteImage(content.Images[0])
}

// mealLabel resolves the offer's meal plan code, or failing that the first
// included-service code with a known label.
func mealLabel(offer domain.RoomStayOffer) string {
	if l, ok := mealLabels[offer.MealCode]; ok {
		return l
	}
	for _, code := range offer.IncludedServices {
		if l, ok := mealLabels[code]; ok {
			return l
		}
	}
	return ""
}

func cancellationView(p domain.CancellationPolicy) domain.CancellationView {
	if p.Free {
		v := domain.CancellationView{Free: true}
		if p.Deadline != nil {
			v.FreeUntil = p.Deadline.UTC().Format("02.01.2006")
		}
		return v
	}
	return domain.CancellationView{Free: false, Penalty: p.Penalty}
}

// perNight rounds total/nights and floors the result at one unit of
// currency so a display price can never be zero or negative.
func perNight(total float64, nights int) float64 {
	if nights < 1 {
		nights = 1
	}
	p := math.Round(total / float64(nights))
	if p < 1 {
		return 1
	}
	return p
}
