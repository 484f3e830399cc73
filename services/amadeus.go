package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ─── Types ────────────────────────────────────────────────────────────────────

type Flight struct {
	Price               float64 `json:"price"`
	Airline             string  `json:"airline"`
	AirlineCode         string  `json:"airline_code,omitempty"`
	FlightNumber        string  `json:"flight_number,omitempty"`
	DepartureTime       string  `json:"departure_time"`
	ArrivalTime         string  `json:"arrival_time"`
	Duration            string  `json:"duration"`
	Stops               int     `json:"stops"`
	ReturnDepartureTime string  `json:"return_departure_time,omitempty"`
	ReturnArrivalTime   string  `json:"return_arrival_time,omitempty"`
	ReturnDuration      string  `json:"return_duration,omitempty"`
	ReturnStops         int     `json:"return_stops,omitempty"`
	Currency            string  `json:"currency,omitempty"`
}

type Hotel struct {
	Name     string  `json:"name"`
	HotelID  string  `json:"hotel_id,omitempty"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Location string  `json:"location"`
	Currency string  `json:"currency,omitempty"`
}

// Location is one result of the reference-data location search.
type Location struct {
	Name     string `json:"name"`
	IataCode string `json:"iata_code"`
	SubType  string `json:"sub_type"` // AIRPORT or CITY
	CityName string `json:"city_name,omitempty"`
	Country  string `json:"country,omitempty"`
}

// ─── Client ───────────────────────────────────────────────────────────────────

// AmadeusClient talks to the Amadeus travel APIs. Every call carries a
// bearer token from the injected TokenSource.
type AmadeusClient struct {
	baseURL    string
	tokens     *TokenSource
	httpClient *http.Client
}

// NewAmadeusClient wires a client against baseURL (test or production
// environment) with the given token source.
func NewAmadeusClient(baseURL string, tokens *TokenSource, httpClient *http.Client) *AmadeusClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &AmadeusClient{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: httpClient,
	}
}

func (c *AmadeusClient) get(ctx context.Context, path string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := readBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("amadeus error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// ─── Location Search ──────────────────────────────────────────────────────────

// SearchLocations queries the reference-data location search for keyword,
// filtered by subTypes (e.g. "AIRPORT,CITY").
func (c *AmadeusClient) SearchLocations(ctx context.Context, keyword, subTypes string) ([]Location, error) {
	path := fmt.Sprintf("/v1/reference-data/locations?keyword=%s&subType=%s&page[limit]=10",
		url.QueryEscape(keyword), url.QueryEscape(subTypes))

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("location search failed: %w", err)
	}

	var resp struct {
		Data []struct {
			Name     string `json:"name"`
			IataCode string `json:"iataCode"`
			SubType  string `json:"subType"`
			Address  struct {
				CityName    string `json:"cityName"`
				CountryName string `json:"countryName"`
			} `json:"address"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse locations: %w", err)
	}

	locations := make([]Location, 0, len(resp.Data))
	for _, d := range resp.Data {
		locations = append(locations, Location{
			Name:     d.Name,
			IataCode: d.IataCode,
			SubType:  d.SubType,
			CityName: d.Address.CityName,
			Country:  d.Address.CountryName,
		})
	}
	return locations, nil
}

// ─── Flight Search ────────────────────────────────────────────────────────────

type flightItinerary struct {
	Duration string `json:"duration"`
	Segments []struct {
		Departure struct {
			IataCode string `json:"iataCode"`
			At       string `json:"at"`
		} `json:"departure"`
		Arrival struct {
			IataCode string `json:"iataCode"`
			At       string `json:"at"`
		} `json:"arrival"`
		CarrierCode string `json:"carrierCode"`
		Number      string `json:"number"`
	} `json:"segments"`
}

type flightOffer struct {
	Price struct {
		GrandTotal string `json:"grandTotal"`
		Currency   string `json:"currency"`
	} `json:"price"`
	Itineraries            []flightItinerary `json:"itineraries"`
	ValidatingAirlineCodes []string          `json:"validatingAirlineCodes"`
}

// SearchFlights queries the Flight Offers Search API for round-trip offers.
func (c *AmadeusClient) SearchFlights(ctx context.Context, origin, destination, departureDate, returnDate string, adults int) ([]Flight, error) {
	path := fmt.Sprintf(
		"/v2/shopping/flight-offers?originLocationCode=%s&destinationLocationCode=%s"+
			"&departureDate=%s&returnDate=%s&adults=%d&max=6&currencyCode=USD",
		url.QueryEscape(origin),
		url.QueryEscape(destination),
		url.QueryEscape(departureDate),
		url.QueryEscape(returnDate),
		adults,
	)

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("flight search failed: %w", err)
	}
	return parseFlightOffers(body)
}

func parseFlightOffers(data []byte) ([]Flight, error) {
	var resp struct {
		Data []flightOffer `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse flight offers: %w", err)
	}

	flights := make([]Flight, 0, len(resp.Data))
	for _, offer := range resp.Data {
		if len(offer.Itineraries) == 0 {
			continue
		}

		price := parsePrice(offer.Price.GrandTotal)
		if price <= 0 {
			continue
		}

		outbound := offer.Itineraries[0]
		airlineCode := ""
		if len(outbound.Segments) > 0 {
			airlineCode = outbound.Segments[0].CarrierCode
		} else if len(offer.ValidatingAirlineCodes) > 0 {
			airlineCode = offer.ValidatingAirlineCodes[0]
		}

		f := Flight{
			Price:       price,
			Airline:     airlineName(airlineCode),
			AirlineCode: airlineCode,
			Currency:    offer.Price.Currency,
			Stops:       maxInt(0, len(outbound.Segments)-1),
			Duration:    humanDuration(outbound.Duration),
		}
		if len(outbound.Segments) > 0 {
			f.DepartureTime = outbound.Segments[0].Departure.At
			f.ArrivalTime = outbound.Segments[len(outbound.Segments)-1].Arrival.At
			f.FlightNumber = airlineCode + outbound.Segments[0].Number
		}

		if len(offer.Itineraries) >= 2 {
			inbound := offer.Itineraries[1]
			f.ReturnStops = maxInt(0, len(inbound.Segments)-1)
			f.ReturnDuration = humanDuration(inbound.Duration)
			if len(inbound.Segments) > 0 {
				f.ReturnDepartureTime = inbound.Segments[0].Departure.At
				f.ReturnArrivalTime = inbound.Segments[len(inbound.Segments)-1].Arrival.At
			}
		}

		flights = append(flights, f)
	}
	return flights, nil
}

// ─── Hotel Search ─────────────────────────────────────────────────────────────

// SearchHotels queries the Hotel List + Hotel Offers APIs for available
// rooms around the destination city.
func (c *AmadeusClient) SearchHotels(ctx context.Context, cityCode, checkIn, checkOut string, adults int) ([]Hotel, error) {
	hotelIDs, err := c.hotelIDsByCity(ctx, cityCode)
	if err != nil {
		return nil, fmt.Errorf("hotel list failed: %w", err)
	}
	if len(hotelIDs) == 0 {
		return nil, fmt.Errorf("no hotels found for city %s", cityCode)
	}
	// Hotel Offers rejects long id lists; 20 keeps us under the limit.
	if len(hotelIDs) > 20 {
		hotelIDs = hotelIDs[:20]
	}
	return c.hotelOffers(ctx, hotelIDs, checkIn, checkOut, adults)
}

func (c *AmadeusClient) hotelIDsByCity(ctx context.Context, cityCode string) ([]string, error) {
	// Hotel search takes city codes, not airport codes.
	path := fmt.Sprintf("/v1/reference-data/locations/hotels/by-city?cityCode=%s&radius=5&radiusUnit=KM&hotelSource=ALL",
		url.QueryEscape(airportToCity(cityCode)))

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			HotelID string `json:"hotelId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse hotel list: %w", err)
	}

	ids := make([]string, 0, len(resp.Data))
	for _, h := range resp.Data {
		ids = append(ids, h.HotelID)
	}
	return ids, nil
}

func (c *AmadeusClient) hotelOffers(ctx context.Context, hotelIDs []string, checkIn, checkOut string, adults int) ([]Hotel, error) {
	path := fmt.Sprintf("/v3/shopping/hotel-offers?hotelIds=%s&checkInDate=%s&checkOutDate=%s&adults=%d&roomQuantity=1&currency=USD&bestRateOnly=true",
		url.QueryEscape(strings.Join(hotelIDs, ",")),
		url.QueryEscape(checkIn),
		url.QueryEscape(checkOut),
		adults,
	)

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("hotel offers failed: %w", err)
	}

	var resp struct {
		Data []struct {
			Hotel struct {
				HotelID  string `json:"hotelId"`
				Name     string `json:"name"`
				CityCode string `json:"cityCode"`
				Address  struct {
					CityName string `json:"cityName"`
				} `json:"address"`
				Rating string `json:"rating"`
			} `json:"hotel"`
			Available bool `json:"available"`
			Offers    []struct {
				Price struct {
					Total    string `json:"total"`
					Currency string `json:"currency"`
				} `json:"price"`
			} `json:"offers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse hotel offers: %w", err)
	}

	hotels := make([]Hotel, 0, len(resp.Data))
	for _, item := range resp.Data {
		if !item.Available || len(item.Offers) == 0 {
			continue
		}
		price := parsePrice(item.Offers[0].Price.Total)
		if price <= 0 {
			continue
		}
		location := item.Hotel.Address.CityName
		if location == "" {
			location = item.Hotel.CityCode
		}
		hotels = append(hotels, Hotel{
			Name:     item.Hotel.Name,
			HotelID:  item.Hotel.HotelID,
			Price:    price,
			Rating:   parseRating(item.Hotel.Rating),
			Location: location,
			Currency: item.Offers[0].Price.Currency,
		})
	}
	return hotels, nil
}
