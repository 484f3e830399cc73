package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripscout/services"
)

// ─── Stub gateways ────────────────────────────────────────────────────────────

type stubLocations struct{}

func (stubLocations) ResolveCode(ctx context.Context, query string, kind services.LocationKind) string {
	if query == "Paris" {
		return "CDG"
	}
	return "LHR"
}

func (stubLocations) ResolveCoords(ctx context.Context, query string) services.CoordEntry {
	return services.CoordEntry{Lat: 48.85, Lon: 2.35, OriginalQuery: query}
}

type stubWeather struct{ err error }

func (s stubWeather) Forecast(ctx context.Context, destination string, lat, lon float64, startDate, endDate string) (services.WeatherResult, error) {
	if s.err != nil {
		return services.WeatherResult{}, s.err
	}
	return services.WeatherResult{Weather: &services.WeatherSummary{Summary: "Mild"}}, nil
}

type stubFlights struct {
	err   error
	calls int
}

func (s *stubFlights) Search(ctx context.Context, origin, destination, departDate, returnDate string, adults int) (services.FlightResult, error) {
	s.calls++
	if s.err != nil {
		return services.FlightResult{}, s.err
	}
	return services.FlightResult{Flights: []services.Flight{{Airline: "Lufthansa", Price: 420}}}, nil
}

type stubHotels struct{ err error }

func (s stubHotels) Search(ctx context.Context, cityCode, checkIn, checkOut string, adults int) (services.HotelResult, error) {
	if s.err != nil {
		return services.HotelResult{}, s.err
	}
	return services.HotelResult{Hotels: []services.Hotel{{Name: "Hotel Le Marais", Price: 180}}}, nil
}

type stubPlanner struct {
	streamErr   error
	streamText  string
	completeErr error
	complete    string
}

func (s stubPlanner) StreamPlan(ctx context.Context, prompt string, onDelta func(string)) error {
	if s.streamErr != nil {
		return s.streamErr
	}
	// Two chunks approximates a token stream well enough here.
	half := len(s.streamText) / 2
	onDelta(s.streamText[:half])
	onDelta(s.streamText[half:])
	return nil
}

func (s stubPlanner) CompletePlan(ctx context.Context, prompt string) (string, error) {
	return s.complete, s.completeErr
}

const stubPlanJSON = `{"summary": "A short break.", "destination": "Paris", "tripDuration": 3,
	"dailyItinerary": [{"day": 1, "title": "Arrival", "activities": ["Check in"]}]}`

func testRequest() TripRequest {
	return TripRequest{
		Travelers:  2,
		DepartFrom: "London",
		ArriveAt:   "Paris",
		DepartDate: "2026-04-10",
		ReturnDate: "2026-04-13",
		Budget:     2000,
	}
}

func happyGateways() Gateways {
	return Gateways{
		Locations: stubLocations{},
		Weather:   stubWeather{},
		Flights:   &stubFlights{},
		Hotels:    stubHotels{},
		Planner:   stubPlanner{streamText: stubPlanJSON},
	}
}

func collect(t *testing.T, ch <-chan Update) []Update {
	t.Helper()
	var out []Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, u)
		case <-timeout:
			t.Fatal("pipeline did not finish in time")
		}
	}
}

func stageSequence(updates []Update) []Stage {
	var stages []Stage
	for _, u := range updates {
		if len(stages) == 0 || stages[len(stages)-1] != u.Stage {
			stages = append(stages, u.Stage)
		}
	}
	return stages
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestPipelineHappyPath(t *testing.T) {
	sessions := NewSessionStore(time.Minute)
	p := New(happyGateways(), testRequest(), sessions, "sess-1")

	updates := collect(t, p.Run(context.Background()))
	require.NotEmpty(t, updates)

	assert.Equal(t, []Stage{
		StageInitializing, StageWeather, StageFlights, StageHotels, StageAI, StageComplete,
	}, stageSequence(updates))

	last := updates[len(updates)-1]
	assert.True(t, last.Done)
	assert.Empty(t, last.Error)
	assert.Equal(t, "live", last.Source)
	assert.Equal(t, "sess-1", last.SessionID)

	state := p.State()
	assert.Equal(t, StageComplete, state.Stage)
	require.NotNil(t, state.Results.Plan)
	assert.Equal(t, "Paris", state.Results.Plan.Destination)
	assert.Len(t, state.Results.Flights, 1)
	assert.Len(t, state.Results.Hotels, 1)

	bundle, ok := sessions.Bundle("sess-1")
	require.True(t, ok)
	assert.Equal(t, "Paris", bundle.Request.ArriveAt)
	require.NotNil(t, bundle.Results.Plan)
}

func TestPipelineEmitsPartialsDuringStreaming(t *testing.T) {
	p := New(happyGateways(), testRequest(), nil, "")

	updates := collect(t, p.Run(context.Background()))

	var partials int
	for _, u := range updates {
		if u.Partial != nil {
			partials++
			assert.Equal(t, StageAI, u.Stage)
		}
	}
	assert.Greater(t, partials, 0, "streaming should surface at least one partial")
}

func TestPipelineEstimatedSourcePropagates(t *testing.T) {
	gw := happyGateways()
	gw.Weather = stubEstimatedWeather{}
	p := New(gw, testRequest(), nil, "")

	updates := collect(t, p.Run(context.Background()))
	last := updates[len(updates)-1]
	assert.Equal(t, "estimated", last.Source)
}

type stubEstimatedWeather struct{}

func (stubEstimatedWeather) Forecast(ctx context.Context, destination string, lat, lon float64, startDate, endDate string) (services.WeatherResult, error) {
	return services.WeatherResult{Weather: &services.WeatherSummary{Summary: "Seasonal"}, Estimated: true}, nil
}

func TestPipelineHaltsOnStageFailureKeepingEarlierResults(t *testing.T) {
	gw := happyGateways()
	gw.Hotels = stubHotels{err: errors.New("vendor exploded")}
	p := New(gw, testRequest(), nil, "")

	updates := collect(t, p.Run(context.Background()))
	last := updates[len(updates)-1]
	assert.True(t, last.Done)
	assert.NotEmpty(t, last.Error)
	assert.Equal(t, StageHotels, last.Stage)

	state := p.State()
	assert.NotNil(t, state.Results.Weather, "weather from before the failure survives")
	assert.Len(t, state.Results.Flights, 1, "flights from before the failure survive")
	assert.Nil(t, state.Results.Hotels)
	assert.Nil(t, state.Results.Plan)
	assert.NotEmpty(t, state.Error)
}

func TestPipelineWeatherFailureStopsBeforeFlights(t *testing.T) {
	gw := happyGateways()
	gw.Weather = stubWeather{err: errors.New("down")}
	flights := &stubFlights{}
	gw.Flights = flights
	p := New(gw, testRequest(), nil, "")

	updates := collect(t, p.Run(context.Background()))
	last := updates[len(updates)-1]
	assert.Equal(t, StageWeather, last.Stage)
	assert.NotEmpty(t, last.Error)
	assert.Zero(t, flights.calls, "later stages must not run after a failure")
}

func TestPipelineRetryResetsAndReruns(t *testing.T) {
	gw := happyGateways()
	hotels := &flakyHotels{failures: 1}
	gw.Hotels = hotels
	p := New(gw, testRequest(), nil, "")

	first := collect(t, p.Run(context.Background()))
	assert.NotEmpty(t, first[len(first)-1].Error)

	second := collect(t, p.Retry(context.Background()))
	last := second[len(second)-1]
	assert.Empty(t, last.Error)
	assert.True(t, last.Done)
	assert.Equal(t, StageComplete, last.Stage)

	state := p.State()
	assert.Empty(t, state.Error)
	assert.Len(t, state.Results.Hotels, 1)
}

type flakyHotels struct{ failures int }

func (f *flakyHotels) Search(ctx context.Context, cityCode, checkIn, checkOut string, adults int) (services.HotelResult, error) {
	if f.failures > 0 {
		f.failures--
		return services.HotelResult{}, errors.New("transient")
	}
	return services.HotelResult{Hotels: []services.Hotel{{Name: "Recovered Inn", Price: 120}}}, nil
}

func TestPipelineStreamingFallbackToSingleShot(t *testing.T) {
	gw := happyGateways()
	gw.Planner = stubPlanner{streamErr: errors.New("stream reset"), complete: stubPlanJSON}
	p := New(gw, testRequest(), nil, "")

	updates := collect(t, p.Run(context.Background()))
	last := updates[len(updates)-1]
	assert.Empty(t, last.Error)
	assert.Equal(t, StageComplete, last.Stage)
	require.NotNil(t, p.State().Results.Plan)
	assert.Equal(t, "Paris", p.State().Results.Plan.Destination)
}

func TestPipelineBothPlannerPathsFailing(t *testing.T) {
	gw := happyGateways()
	gw.Planner = stubPlanner{streamErr: errors.New("reset"), completeErr: errors.New("quota")}
	p := New(gw, testRequest(), nil, "")

	updates := collect(t, p.Run(context.Background()))
	last := updates[len(updates)-1]
	assert.Equal(t, StageAI, last.Stage)
	assert.NotEmpty(t, last.Error)
	assert.Nil(t, p.State().Results.Plan)
}

func TestPipelineUnparseableStreamFallsBack(t *testing.T) {
	gw := happyGateways()
	gw.Planner = stubPlanner{streamText: "I'm sorry, I can't help with that.", complete: stubPlanJSON}
	p := New(gw, testRequest(), nil, "")

	updates := collect(t, p.Run(context.Background()))
	last := updates[len(updates)-1]
	assert.Empty(t, last.Error)
	require.NotNil(t, p.State().Results.Plan)
}

func TestPipelineCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(happyGateways(), testRequest(), nil, "")
	ch := p.Run(ctx)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // closed without hanging; that is the contract
			}
		case <-timeout:
			t.Fatal("pipeline did not stop on cancelled context")
		}
	}
}

func TestPipelineDefaultsTravelers(t *testing.T) {
	req := testRequest()
	req.Travelers = 0
	p := New(happyGateways(), req, nil, "")
	assert.Equal(t, 1, p.req.Travelers)
}
