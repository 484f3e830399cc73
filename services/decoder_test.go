package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPlanJSON = `{
	"summary": "Five days of food and art in Paris.",
	"destination": "Paris",
	"tripDuration": 5,
	"selectedFlight": {"name": "Air France AF 1681", "price": 420.50, "reason": "Direct and cheapest"},
	"selectedHotel": {"name": "Hotel Le Marais", "price": 180, "reason": "Central location"},
	"dailyItinerary": [
		{"day": 1, "title": "Arrival", "activities": ["Check in", "Walk the Seine"]},
		{"day": 2, "title": "Museums", "activities": ["Louvre", "Orsay"]}
	],
	"budgetAnalysis": {"estimatedTotal": 2100, "withinBudget": true, "notes": "Room to spare"},
	"travelTips": ["Buy a carnet of metro tickets"],
	"packingRecommendations": ["Umbrella"]
}`

// feed writes s to the decoder in fixed-size chunks, the way a token
// stream arrives.
func feed(d *PlanDecoder, s string, chunkSize int) {
	for len(s) > 0 {
		n := chunkSize
		if n > len(s) {
			n = len(s)
		}
		d.Write(s[:n])
		s = s[n:]
	}
}

func TestDecoderFullStream(t *testing.T) {
	var updates []PartialPlan
	d := NewPlanDecoder(func(p PartialPlan) { updates = append(updates, p) })

	feed(d, fullPlanJSON, 17)

	plan, err := d.Finish()
	require.NoError(t, err)
	assert.Equal(t, "Paris", plan.Destination)
	assert.Equal(t, 5, plan.TripDuration)
	require.NotNil(t, plan.SelectedFlight)
	assert.Equal(t, "Air France AF 1681", plan.SelectedFlight.Name)
	assert.Len(t, plan.DailyItinerary, 2)
	require.NotNil(t, plan.BudgetAnalysis)
	assert.True(t, plan.BudgetAnalysis.WithinBudget)

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, "Paris", last.Destination)
	assert.Equal(t, 2, last.ItineraryDays)
}

func TestDecoderPartialsAreMonotonic(t *testing.T) {
	var updates []PartialPlan
	d := NewPlanDecoder(func(p PartialPlan) { updates = append(updates, p) })

	feed(d, fullPlanJSON, 13)

	// Once a field appears in an update it must appear, unchanged, in
	// every later update.
	var seen PartialPlan
	for _, u := range updates {
		if seen.Summary != "" {
			assert.Equal(t, seen.Summary, u.Summary)
		}
		if seen.Destination != "" {
			assert.Equal(t, seen.Destination, u.Destination)
		}
		if seen.TripDuration != 0 {
			assert.Equal(t, seen.TripDuration, u.TripDuration)
		}
		assert.GreaterOrEqual(t, u.ItineraryDays, seen.ItineraryDays)
		seen = u
	}
}

func TestDecoderFieldAppearsOnceComplete(t *testing.T) {
	d := NewPlanDecoder(nil)

	// Summary's closing quote has not arrived yet.
	d.Write(`{"summary": "Five days in Par`)
	assert.Empty(t, d.Partial().Summary)

	d.Write(`is.", "destination": "Paris"`)
	assert.Equal(t, "Five days in Paris.", d.Partial().Summary)
	assert.Equal(t, "Paris", d.Partial().Destination)
}

func TestDecoderDayCountWaitsForClosedActivities(t *testing.T) {
	d := NewPlanDecoder(nil)

	d.Write(`{"dailyItinerary": [{"day": 1, "title": "Arrival", "activities": ["Check in"`)
	assert.Zero(t, d.Partial().ItineraryDays)

	d.Write(`]}, {"day": 2, "title": "Museums", "activities": ["Louvre"]}`)
	assert.Equal(t, 2, d.Partial().ItineraryDays)
}

func TestDecoderStripsCodeFences(t *testing.T) {
	d := NewPlanDecoder(nil)
	feed(d, "```json\n"+fullPlanJSON+"\n```", 25)

	plan, err := d.Finish()
	require.NoError(t, err)
	assert.Equal(t, "Paris", plan.Destination)
}

func TestDecoderFinishFailsOnGarbage(t *testing.T) {
	d := NewPlanDecoder(nil)
	d.Write(`Sorry, I cannot produce an itinerary right now.`)

	plan, err := d.Finish()
	assert.Error(t, err)
	assert.Nil(t, plan)
}

func TestDecoderFinishFailsOnTruncatedJSON(t *testing.T) {
	d := NewPlanDecoder(nil)
	d.Write(fullPlanJSON[:len(fullPlanJSON)/2])

	_, err := d.Finish()
	assert.Error(t, err)
}

func TestDecoderSchemaDriftIsNonFatal(t *testing.T) {
	d := NewPlanDecoder(nil)
	// Parseable but missing most of the schema.
	d.Write(`{"summary": "Short trip."}`)

	plan, err := d.Finish()
	require.NoError(t, err)
	assert.Equal(t, "Short trip.", plan.Summary)
	assert.Empty(t, plan.Destination)
}

func TestDecoderEscapedStrings(t *testing.T) {
	d := NewPlanDecoder(nil)
	d.Write(`{"summary": "A \"grand\" tour", "destination": "São Paulo"}`)

	assert.Equal(t, `A "grand" tour`, d.Partial().Summary)
	assert.Equal(t, "São Paulo", d.Partial().Destination)
}
