package services

import (
	"context"
	"log"
)

// The gateways below wrap the raw vendor clients with the recover-locally
// policy: when a vendor is unconfigured, errors out, or returns nothing,
// they substitute generated data and mark the result estimated. Only a
// canceled context surfaces as an error, so an abandoned run stops
// instead of fabricating output.

type FlightResult struct {
	Flights   []Flight `json:"flights"`
	Estimated bool     `json:"estimated"`
}

type HotelResult struct {
	Hotels    []Hotel `json:"hotels"`
	Estimated bool    `json:"estimated"`
}

type WeatherResult struct {
	Weather   *WeatherSummary `json:"weather"`
	Estimated bool            `json:"estimated"`
}

// FlightGateway serves flight offers, live when possible.
type FlightGateway struct {
	client *AmadeusClient // nil when unconfigured
}

func NewFlightGateway(client *AmadeusClient) *FlightGateway {
	return &FlightGateway{client: client}
}

func (g *FlightGateway) Search(ctx context.Context, origin, destination, departDate, returnDate string, adults int) (FlightResult, error) {
	if g.client != nil {
		flights, err := g.client.SearchFlights(ctx, origin, destination, departDate, returnDate, adults)
		if err == nil && len(flights) > 0 {
			log.Printf("✅ flights: %d live offers %s-%s", len(flights), origin, destination)
			return FlightResult{Flights: flights}, nil
		}
		if ctx.Err() != nil {
			return FlightResult{}, ctx.Err()
		}
		if err != nil {
			log.Printf("⚠️  flight search failed: %v — using estimated data", err)
		} else {
			log.Printf("⚠️  flight search returned 0 offers — using estimated data")
		}
	}
	return FlightResult{Flights: GenerateFlights(origin, destination, departDate, returnDate), Estimated: true}, nil
}

// HotelGateway serves hotel offers, live when possible.
type HotelGateway struct {
	client *AmadeusClient
}

func NewHotelGateway(client *AmadeusClient) *HotelGateway {
	return &HotelGateway{client: client}
}

func (g *HotelGateway) Search(ctx context.Context, cityCode, checkIn, checkOut string, adults int) (HotelResult, error) {
	if g.client != nil {
		hotels, err := g.client.SearchHotels(ctx, cityCode, checkIn, checkOut, adults)
		if err == nil && len(hotels) > 0 {
			log.Printf("✅ hotels: %d live offers in %s", len(hotels), cityCode)
			return HotelResult{Hotels: hotels}, nil
		}
		if ctx.Err() != nil {
			return HotelResult{}, ctx.Err()
		}
		if err != nil {
			log.Printf("⚠️  hotel search failed: %v — using estimated data", err)
		} else {
			log.Printf("⚠️  hotel search returned 0 offers — using estimated data")
		}
	}
	return HotelResult{Hotels: GenerateHotels(cityCode), Estimated: true}, nil
}

// WeatherGateway serves forecasts, live when possible.
type WeatherGateway struct {
	client *WeatherClient // nil when unconfigured
}

func NewWeatherGateway(client *WeatherClient) *WeatherGateway {
	return &WeatherGateway{client: client}
}

func (g *WeatherGateway) Forecast(ctx context.Context, destination string, lat, lon float64, startDate, endDate string) (WeatherResult, error) {
	if g.client != nil {
		summary, err := g.client.Forecast(ctx, lat, lon, startDate, endDate)
		if err == nil {
			return WeatherResult{Weather: summary}, nil
		}
		if ctx.Err() != nil {
			return WeatherResult{}, ctx.Err()
		}
		log.Printf("⚠️  forecast failed: %v — using seasonal estimates", err)
	}
	return WeatherResult{Weather: GenerateWeather(destination, startDate, endDate), Estimated: true}, nil
}
