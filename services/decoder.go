package services

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// ─── Plan schema ──────────────────────────────────────────────────────────────

type PlanChoice struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Reason string  `json:"reason,omitempty"`
}

type ItineraryDay struct {
	Day        int      `json:"day"`
	Title      string   `json:"title"`
	Activities []string `json:"activities"`
}

type BudgetAnalysis struct {
	EstimatedTotal float64 `json:"estimatedTotal"`
	WithinBudget   bool    `json:"withinBudget"`
	Notes          string  `json:"notes,omitempty"`
}

// TripPlan is the structured itinerary the AI stage produces.
type TripPlan struct {
	Summary                string          `json:"summary"`
	Destination            string          `json:"destination"`
	TripDuration           int             `json:"tripDuration"`
	SelectedFlight         *PlanChoice     `json:"selectedFlight,omitempty"`
	SelectedHotel          *PlanChoice     `json:"selectedHotel,omitempty"`
	DailyItinerary         []ItineraryDay  `json:"dailyItinerary,omitempty"`
	BudgetAnalysis         *BudgetAnalysis `json:"budgetAnalysis,omitempty"`
	TravelTips             []string        `json:"travelTips,omitempty"`
	PackingRecommendations []string        `json:"packingRecommendations,omitempty"`
}

// PartialPlan is the best-effort view extracted while the stream is still
// arriving. Fields only ever fill in; they are never retracted within a
// session.
type PartialPlan struct {
	Summary        string      `json:"summary,omitempty"`
	Destination    string      `json:"destination,omitempty"`
	TripDuration   int         `json:"trip_duration,omitempty"`
	SelectedFlight *PlanChoice `json:"selected_flight,omitempty"`
	SelectedHotel  *PlanChoice `json:"selected_hotel,omitempty"`
	ItineraryDays  int         `json:"itinerary_days,omitempty"`
}

// ─── Decoder ──────────────────────────────────────────────────────────────────

// PlanDecoder accumulates streamed completion text and opportunistically
// extracts partial plan fields so the caller can render before the buffer
// is valid JSON. The field-level extraction is deliberately loose; it is
// not a validating parser and only the whitelist below is surfaced during
// streaming.
type PlanDecoder struct {
	buf       strings.Builder
	partial   PartialPlan
	onPartial func(PartialPlan)
}

// NewPlanDecoder creates a decoder. onPartial (optional) is invoked
// synchronously after each chunk that adds at least one field.
func NewPlanDecoder(onPartial func(PartialPlan)) *PlanDecoder {
	return &PlanDecoder{onPartial: onPartial}
}

var (
	summaryRe     = jsonStringFieldRe("summary")
	destinationRe = jsonStringFieldRe("destination")
	durationRe    = regexp.MustCompile(`"tripDuration"\s*:\s*(\d+)`)
	flightRe      = regexp.MustCompile(`"selectedFlight"\s*:\s*(\{[^{}]*\})`)
	hotelRe       = regexp.MustCompile(`"selectedHotel"\s*:\s*(\{[^{}]*\})`)
	// A daily-itinerary entry counts only once its activities array has
	// closed; entries still being streamed do not match.
	dayEntryRe = regexp.MustCompile(`\{[^{}\[\]]*"day"\s*:\s*\d+[^{}\[\]]*\[[^\[\]]*\][^{}]*\}`)
)

func jsonStringFieldRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + name + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

// Write appends a chunk and re-attempts partial extraction.
func (d *PlanDecoder) Write(chunk string) {
	d.buf.WriteString(chunk)
	if d.extract() && d.onPartial != nil {
		d.onPartial(d.partial)
	}
}

// Partial returns the current best-effort view.
func (d *PlanDecoder) Partial() PartialPlan {
	return d.partial
}

// extract merges newly parseable fields into the partial view and reports
// whether anything changed. Already-extracted fields survive later
// extraction misses.
func (d *PlanDecoder) extract() bool {
	text := stripCodeFences(d.buf.String())

	// The buffer is complete JSON only at the very end of a stream, but
	// when it is, prefer the real parse over regex scraping.
	var full TripPlan
	if err := json.Unmarshal([]byte(text), &full); err == nil {
		return d.mergeFull(&full)
	}

	changed := false
	if d.partial.Summary == "" {
		if v, ok := matchString(summaryRe, text); ok {
			d.partial.Summary = v
			changed = true
		}
	}
	if d.partial.Destination == "" {
		if v, ok := matchString(destinationRe, text); ok {
			d.partial.Destination = v
			changed = true
		}
	}
	if d.partial.TripDuration == 0 {
		if m := durationRe.FindStringSubmatch(text); m != nil {
			var n int
			fmt.Sscanf(m[1], "%d", &n)
			if n > 0 {
				d.partial.TripDuration = n
				changed = true
			}
		}
	}
	if d.partial.SelectedFlight == nil {
		if c := matchChoice(flightRe, text); c != nil {
			d.partial.SelectedFlight = c
			changed = true
		}
	}
	if d.partial.SelectedHotel == nil {
		if c := matchChoice(hotelRe, text); c != nil {
			d.partial.SelectedHotel = c
			changed = true
		}
	}
	if n := len(dayEntryRe.FindAllString(text, -1)); n > d.partial.ItineraryDays {
		d.partial.ItineraryDays = n
		changed = true
	}
	return changed
}

func (d *PlanDecoder) mergeFull(plan *TripPlan) bool {
	changed := false
	if plan.Summary != "" && d.partial.Summary == "" {
		d.partial.Summary = plan.Summary
		changed = true
	}
	if plan.Destination != "" && d.partial.Destination == "" {
		d.partial.Destination = plan.Destination
		changed = true
	}
	if plan.TripDuration != 0 && d.partial.TripDuration == 0 {
		d.partial.TripDuration = plan.TripDuration
		changed = true
	}
	if plan.SelectedFlight != nil && d.partial.SelectedFlight == nil {
		d.partial.SelectedFlight = plan.SelectedFlight
		changed = true
	}
	if plan.SelectedHotel != nil && d.partial.SelectedHotel == nil {
		d.partial.SelectedHotel = plan.SelectedHotel
		changed = true
	}
	if n := len(plan.DailyItinerary); n > d.partial.ItineraryDays {
		d.partial.ItineraryDays = n
		changed = true
	}
	return changed
}

// Finish parses the complete buffer. A parse failure here is terminal,
// unlike the per-chunk misses which are the expected steady state.
// Schema-level problems in a parseable object are logged but the object
// is still returned.
func (d *PlanDecoder) Finish() (*TripPlan, error) {
	text := stripCodeFences(d.buf.String())

	var plan TripPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("plan decode failed: %w", err)
	}
	if err := validatePlan(&plan); err != nil {
		log.Printf("⚠️  plan schema drift (non-fatal): %v", err)
	}
	return &plan, nil
}

func validatePlan(plan *TripPlan) error {
	var missing []string
	if plan.Summary == "" {
		missing = append(missing, "summary")
	}
	if plan.Destination == "" {
		missing = append(missing, "destination")
	}
	if plan.TripDuration <= 0 {
		missing = append(missing, "tripDuration")
	}
	if len(plan.DailyItinerary) == 0 {
		missing = append(missing, "dailyItinerary")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// stripCodeFences removes a leading ```json (or bare ```) fence and the
// matching trailing fence, if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func matchString(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	// The capture is raw escaped JSON; round-trip it through the decoder
	// to unescape.
	var v string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &v); err != nil {
		return "", false
	}
	return v, v != ""
}

func matchChoice(re *regexp.Regexp, text string) *PlanChoice {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var c PlanChoice
	if err := json.Unmarshal([]byte(m[1]), &c); err != nil || c.Name == "" {
		return nil
	}
	return &c
}
