package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tripscout/services"
)

// Stage identifies where a run currently is. Stages only ever advance;
// Retry starts a fresh pass from weather.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageWeather      Stage = "weather"
	StageFlights      Stage = "flights"
	StageHotels       Stage = "hotels"
	StageAI           Stage = "ai"
	StageComplete     Stage = "complete"
)

// TripRequest is immutable for the duration of a run.
type TripRequest struct {
	Travelers  int     `json:"travelers"`
	DepartFrom string  `json:"depart_from" binding:"required"`
	ArriveAt   string  `json:"arrive_at" binding:"required"`
	DepartDate string  `json:"depart_date" binding:"required"`
	ReturnDate string  `json:"return_date" binding:"required"`
	Budget     float64 `json:"budget" binding:"required,gt=0"`
}

// Results accumulates stage outputs. Earlier entries survive a later
// stage failure.
type Results struct {
	Weather *services.WeatherSummary `json:"weather,omitempty"`
	Flights []services.Flight        `json:"flights,omitempty"`
	Hotels  []services.Hotel         `json:"hotels,omitempty"`
	Plan    *services.TripPlan       `json:"plan,omitempty"`
	Photos  []services.Photo         `json:"photos,omitempty"`
	Source  string                   `json:"source"` // live | estimated
}

// Update is one event on the run's output stream.
type Update struct {
	Stage     Stage                   `json:"stage"`
	Weather   *services.WeatherResult `json:"weather,omitempty"`
	Flights   *services.FlightResult  `json:"flights,omitempty"`
	Hotels    *services.HotelResult   `json:"hotels,omitempty"`
	Plan      *services.TripPlan      `json:"plan,omitempty"`
	Partial   *services.PartialPlan   `json:"partial,omitempty"`
	Source    string                  `json:"source,omitempty"`
	SessionID string                  `json:"session_id,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Done      bool                    `json:"done,omitempty"`
}

// State is a read-only snapshot for callers outside the update stream.
type State struct {
	Stage   Stage
	Results Results
	Error   string
}

// ─── Gateway contracts ────────────────────────────────────────────────────────

type LocationService interface {
	ResolveCode(ctx context.Context, query string, kind services.LocationKind) string
	ResolveCoords(ctx context.Context, query string) services.CoordEntry
}

type WeatherService interface {
	Forecast(ctx context.Context, destination string, lat, lon float64, startDate, endDate string) (services.WeatherResult, error)
}

type FlightService interface {
	Search(ctx context.Context, origin, destination, departDate, returnDate string, adults int) (services.FlightResult, error)
}

type HotelService interface {
	Search(ctx context.Context, cityCode, checkIn, checkOut string, adults int) (services.HotelResult, error)
}

type PlanService interface {
	StreamPlan(ctx context.Context, prompt string, onDelta func(text string)) error
	CompletePlan(ctx context.Context, prompt string) (string, error)
}

type PhotoService interface {
	Search(ctx context.Context, query string, count int) []services.Photo
}

// Gateways bundles everything a run needs. Photos is optional.
type Gateways struct {
	Locations LocationService
	Weather   WeatherService
	Flights   FlightService
	Hotels    HotelService
	Planner   PlanService
	Photos    PhotoService
}

// ─── Pipeline ─────────────────────────────────────────────────────────────────

// Pipeline drives one trip-planning session through its stages in order,
// emitting typed updates. Stages are strictly sequential: the staged
// reveal (weather, then flights, then hotels, then the plan) is the UX
// contract, not a scheduling accident.
type Pipeline struct {
	gw        Gateways
	req       TripRequest
	sessions  *SessionStore // may be nil
	sessionID string

	mu      sync.Mutex
	stage   Stage
	results Results
	errMsg  string
}

// New creates a pipeline for one request. sessions (optional) receives
// the completed bundle under sessionID.
func New(gw Gateways, req TripRequest, sessions *SessionStore, sessionID string) *Pipeline {
	if req.Travelers <= 0 {
		req.Travelers = 1
	}
	return &Pipeline{
		gw:        gw,
		req:       req,
		sessions:  sessions,
		sessionID: sessionID,
		stage:     StageInitializing,
	}
}

// Run executes the stage sequence, returning the update stream. The
// channel closes after the terminal complete or error event. Abandoning
// the channel cancels nothing by itself; cancel ctx to stop in-flight
// vendor calls.
func (p *Pipeline) Run(ctx context.Context) <-chan Update {
	ch := make(chan Update)
	go p.run(ctx, ch)
	return ch
}

// Retry clears accumulated results and error state and reruns every
// stage from weather, whatever the caches upstream still remember.
func (p *Pipeline) Retry(ctx context.Context) <-chan Update {
	p.mu.Lock()
	p.stage = StageInitializing
	p.results = Results{}
	p.errMsg = ""
	p.mu.Unlock()
	return p.Run(ctx)
}

// State returns a snapshot of the current stage, results and error.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Stage: p.stage, Results: p.results, Error: p.errMsg}
}

func (p *Pipeline) setStage(s Stage) {
	p.mu.Lock()
	p.stage = s
	p.mu.Unlock()
}

func (p *Pipeline) run(ctx context.Context, ch chan<- Update) {
	defer close(ch)

	emit := func(u Update) bool {
		select {
		case ch <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}

	fail := func(stage Stage, msg string) {
		p.mu.Lock()
		p.errMsg = msg
		p.mu.Unlock()
		emit(Update{Stage: stage, Error: msg, Done: true})
	}

	req := p.req
	estimated := false

	// ── initializing: resolve locations ─────────────────────────────────
	p.setStage(StageInitializing)
	if !emit(Update{Stage: StageInitializing}) {
		return
	}

	origin := p.gw.Locations.ResolveCode(ctx, req.DepartFrom, services.KindAirport)
	destination := p.gw.Locations.ResolveCode(ctx, req.ArriveAt, services.KindAirport)
	coords := p.gw.Locations.ResolveCoords(ctx, req.ArriveAt)
	if ctx.Err() != nil {
		return
	}

	// ── weather ─────────────────────────────────────────────────────────
	p.setStage(StageWeather)
	weather, err := p.gw.Weather.Forecast(ctx, req.ArriveAt, coords.Lat, coords.Lon, req.DepartDate, req.ReturnDate)
	if err != nil {
		fail(StageWeather, "Could not load the weather forecast for your destination.")
		return
	}
	estimated = estimated || weather.Estimated
	p.mu.Lock()
	p.results.Weather = weather.Weather
	p.mu.Unlock()
	if !emit(Update{Stage: StageWeather, Weather: &weather}) {
		return
	}

	// ── flights ─────────────────────────────────────────────────────────
	p.setStage(StageFlights)
	flights, err := p.gw.Flights.Search(ctx, origin, destination, req.DepartDate, req.ReturnDate, req.Travelers)
	if err != nil {
		fail(StageFlights, "Could not load flight options for your route.")
		return
	}
	estimated = estimated || flights.Estimated
	p.mu.Lock()
	p.results.Flights = flights.Flights
	p.mu.Unlock()
	if !emit(Update{Stage: StageFlights, Flights: &flights}) {
		return
	}

	// ── hotels ──────────────────────────────────────────────────────────
	p.setStage(StageHotels)
	hotels, err := p.gw.Hotels.Search(ctx, destination, req.DepartDate, req.ReturnDate, req.Travelers)
	if err != nil {
		fail(StageHotels, "Could not load hotel options for your destination.")
		return
	}
	estimated = estimated || hotels.Estimated
	p.mu.Lock()
	p.results.Hotels = hotels.Hotels
	p.mu.Unlock()
	if !emit(Update{Stage: StageHotels, Hotels: &hotels}) {
		return
	}

	// Decoration only; failures already degrade to nil inside the gateway.
	if p.gw.Photos != nil {
		p.mu.Lock()
		p.results.Photos = p.gw.Photos.Search(ctx, req.ArriveAt, 3)
		p.mu.Unlock()
	}

	// ── ai ──────────────────────────────────────────────────────────────
	p.setStage(StageAI)
	prompt := services.BuildPlanPrompt(origin, destination, req.DepartDate, req.ReturnDate,
		req.Travelers, req.Budget, weather.Weather, flights.Flights, hotels.Hotels, estimated)

	plan, err := p.generatePlan(ctx, prompt, emit)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fail(StageAI, "Could not generate your itinerary. Please try again.")
		return
	}
	p.mu.Lock()
	p.results.Plan = plan
	p.mu.Unlock()
	if !emit(Update{Stage: StageAI, Plan: plan}) {
		return
	}

	// ── complete ────────────────────────────────────────────────────────
	source := "live"
	if estimated {
		source = "estimated"
	}
	p.mu.Lock()
	p.results.Source = source
	results := p.results
	p.stage = StageComplete
	p.mu.Unlock()

	// Best-effort persistence: losing it only costs a refetch.
	if p.sessions != nil && p.sessionID != "" {
		p.sessions.SaveBundle(p.sessionID, &Bundle{
			Request:   req,
			Results:   results,
			CreatedAt: time.Now(),
		})
	}

	emit(Update{Stage: StageComplete, Source: source, SessionID: p.sessionID, Done: true})
}

// generatePlan tries the streaming path first, then falls back to one
// single-shot completion before giving up.
func (p *Pipeline) generatePlan(ctx context.Context, prompt string, emit func(Update) bool) (*services.TripPlan, error) {
	decoder := services.NewPlanDecoder(func(partial services.PartialPlan) {
		emit(Update{Stage: StageAI, Partial: &partial})
	})

	streamErr := p.gw.Planner.StreamPlan(ctx, prompt, decoder.Write)
	if streamErr == nil {
		plan, err := decoder.Finish()
		if err == nil {
			return plan, nil
		}
		streamErr = err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	text, err := p.gw.Planner.CompletePlan(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("streaming failed (%v) and fallback failed: %w", streamErr, err)
	}
	fallback := services.NewPlanDecoder(nil)
	fallback.Write(text)
	plan, err := fallback.Finish()
	if err != nil {
		return nil, fmt.Errorf("streaming failed (%v) and fallback response unparseable: %w", streamErr, err)
	}
	return plan, nil
}
