package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/nayzeok/tourist-tour-back/internal/app"
	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

// ImageSource serves proxied image bytes by token.
type ImageSource interface {
	Fetch(ctx context.Context, token string) ([]byte, string, error)
}

// Handlers is the thin request layer over the callable services. Routing
// and validation stay deliberately minimal.
type Handlers struct {
	Images  ImageSource
	Listing *app.ListingService
	Geo     *app.GeoService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Get("/images/{token}", h.getImage)
	s.mux.Get("/v1/cities", h.listCities)
	s.mux.Get("/v1/cities/{id}/cards", h.cityCards)
	s.mux.Get("/v1/properties/{id}/offers", h.propertyOffers)
}

func (h *Handlers) getImage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	b, ct, err := h.Images.Fetch(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidImageToken):
			writeProblem(w, http.StatusBadRequest, "Invalid Token", "image token is malformed")
		case errors.Is(err, domain.ErrImageUnavailable):
			writeProblem(w, http.StatusBadGateway, "Image Unavailable", "source image could not be fetched")
		default:
			writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	w.Header().Set("Content-Type", ct)
	// content-addressed and immutable, safe to cache aggressively
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		log.Error().Err(err).Msg("write image body failed")
	}
}

func (h *Handlers) listCities(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		country = "RU"
	}
	cities, err := h.Geo.CitiesByCountry(r.Context(), country)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Geography Unavailable", err.Error())
		return
	}
	writeJSON(w, cities)
}

func (h *Handlers) cityCards(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	stay, perr := stayFromQuery(r)
	if perr != "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Query", perr)
		return
	}
	cards, err := h.Listing.CardsForCity(r.Context(), id, stay)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Listing Unavailable", err.Error())
		return
	}
	writeJSON(w, cards)
}

func (h *Handlers) propertyOffers(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	stay, perr := stayFromQuery(r)
	if perr != "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Query", perr)
		return
	}
	page, err := h.Listing.OfferPage(r.Context(), id, stay)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrContentUnavailable):
			writeProblem(w, http.StatusNotFound, "Not Found", "property content unavailable")
		case errors.Is(err, domain.ErrPricingUnavailable):
			writeProblem(w, http.StatusBadGateway, "Pricing Unavailable", "no offers could be retrieved")
		default:
			writeProblem(w, http.StatusBadGateway, "Offers Unavailable", err.Error())
		}
		return
	}
	writeJSON(w, page)
}

// stayFromQuery parses ?arrival=2026-09-10&departure=2026-09-12&adults=2
// &childAges=4,8&currency=RUB. Returns a problem detail on bad input.
func stayFromQuery(r *http.Request) (domain.StayQuery, string) {
	q := r.URL.Query()
	arrival, err := time.Parse("2006-01-02", q.Get("arrival"))
	if err != nil {
		return domain.StayQuery{}, "arrival must be YYYY-MM-DD"
	}
	departure, err := time.Parse("2006-01-02", q.Get("departure"))
	if err != nil {
		return domain.StayQuery{}, "departure must be YYYY-MM-DD"
	}
	if !departure.After(arrival) {
		return domain.StayQuery{}, "departure must be after arrival"
	}
	adults := 2
	if s := q.Get("adults"); s != "" {
		if adults, err = strconv.Atoi(s); err != nil || adults < 1 || adults > 10 {
			return domain.StayQuery{}, "adults must be between 1 and 10"
		}
	}
	var ages []int
	if s := q.Get("childAges"); s != "" {
		for _, p := range strings.Split(s, ",") {
			a, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || a < 0 || a > 17 {
				return domain.StayQuery{}, "childAges must be integers between 0 and 17"
			}
			ages = append(ages, a)
		}
	}
	currency := strings.ToUpper(q.Get("currency"))
	if currency == "" {
		currency = "RUB"
	}
	return domain.StayQuery{
		Arrival:   arrival,
		Departure: departure,
		Adults:    adults,
		ChildAges: ages,
		Currency:  currency,
	}, ""
}
