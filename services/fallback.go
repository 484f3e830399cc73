package services

import (
	"time"

	"tripscout/cache"
)

// ─── Static location tables ───────────────────────────────────────────────────

// cityAirports is the hand-curated last-resort mapping used when the
// location-search vendor is down or returns nothing. Keys are normalized
// city names.
var cityAirports = map[string]string{
	"amsterdam":    "AMS",
	"athens":       "ATH",
	"bangkok":      "BKK",
	"barcelona":    "BCN",
	"beijing":      "PEK",
	"berlin":       "BER",
	"boston":       "BOS",
	"brussels":     "BRU",
	"budapest":     "BUD",
	"buenos aires": "EZE",
	"cairo":        "CAI",
	"chicago":      "ORD",
	"copenhagen":   "CPH",
	"delhi":        "DEL",
	"doha":         "DOH",
	"dubai":        "DXB",
	"dublin":       "DUB",
	"frankfurt":    "FRA",
	"geneva":       "GVA",
	"helsinki":     "HEL",
	"hong kong":    "HKG",
	"istanbul":     "IST",
	"lisbon":       "LIS",
	"london":       "LHR",
	"los angeles":  "LAX",
	"madrid":       "MAD",
	"melbourne":    "MEL",
	"mexico city":  "MEX",
	"miami":        "MIA",
	"mumbai":       "BOM",
	"munich":       "MUC",
	"new york":     "JFK",
	"oslo":         "OSL",
	"paris":        "CDG",
	"prague":       "PRG",
	"rome":         "FCO",
	"san francisco": "SFO",
	"sao paulo":    "GRU",
	"seattle":      "SEA",
	"seoul":        "ICN",
	"shanghai":     "PVG",
	"singapore":    "SIN",
	"stockholm":    "ARN",
	"sydney":       "SYD",
	"tashkent":     "TAS",
	"tokyo":        "NRT",
	"toronto":      "YYZ",
	"vancouver":    "YVR",
	"vienna":       "VIE",
	"warsaw":       "WAW",
	"zurich":       "ZRH",
}

// cityCoords covers the same major cities for when geocoding is down.
var cityCoords = map[string][2]float64{
	"amsterdam":   {52.3676, 4.9041},
	"bangkok":     {13.7563, 100.5018},
	"barcelona":   {41.3851, 2.1734},
	"berlin":      {52.5200, 13.4050},
	"dubai":       {25.2048, 55.2708},
	"hong kong":   {22.3193, 114.1694},
	"istanbul":    {41.0082, 28.9784},
	"lisbon":      {38.7223, -9.1393},
	"london":      {51.5074, -0.1278},
	"los angeles": {34.0522, -118.2437},
	"madrid":      {40.4168, -3.7038},
	"new york":    {40.7128, -74.0060},
	"paris":       {48.8566, 2.3522},
	"prague":      {50.0755, 14.4378},
	"rome":        {41.9028, 12.4964},
	"san francisco": {37.7749, -122.4194},
	"singapore":   {1.3521, 103.8198},
	"sydney":      {-33.8688, 151.2093},
	"tokyo":       {35.6762, 139.6503},
	"vienna":      {48.2082, 16.3738},
}

func fallbackCode(query string, kind LocationKind) string {
	code, ok := cityAirports[cache.NormalizeKey(query)]
	if !ok {
		code = DefaultHub
	}
	if kind == KindCity {
		return airportToCity(code)
	}
	return code
}

func fallbackCoords(query, original string) CoordEntry {
	if c, ok := cityCoords[cache.NormalizeKey(query)]; ok {
		return CoordEntry{Lat: c[0], Lon: c[1], OriginalQuery: original}
	}
	london := cityCoords["london"]
	return CoordEntry{Lat: london[0], Lon: london[1], OriginalQuery: original}
}

// ─── Generated vendor data ────────────────────────────────────────────────────
//
// When a vendor is unconfigured or down, the gateways substitute plausible
// data so the pipeline can still complete. Responses built this way are
// labeled "estimated" end to end.

// GenerateFlights produces estimated flight options for a route.
func GenerateFlights(origin, destination, departureDate, returnDate string) []Flight {
	type routeInfo struct {
		basePrice float64
		duration  int // minutes
	}
	routes := map[string]routeInfo{
		"LHR-JFK": {450, 480}, "JFK-LHR": {450, 480},
		"LHR-CDG": {80, 75}, "CDG-LHR": {80, 75},
		"LHR-DXB": {380, 410}, "DXB-LHR": {380, 410},
		"CDG-IST": {190, 200}, "IST-CDG": {190, 200},
		"FRA-IST": {150, 165}, "IST-FRA": {150, 165},
		"JFK-CDG": {420, 440}, "CDG-JFK": {420, 440},
		"LHR-SIN": {620, 780}, "SIN-LHR": {620, 780},
		"BER-CDG": {120, 105}, "CDG-BER": {120, 105},
	}

	info, ok := routes[origin+"-"+destination]
	if !ok {
		info = routeInfo{350, 240}
	}

	options := []struct {
		name     string
		priceMod float64
		stops    int
	}{
		{"Turkish Airlines", 1.00, 0},
		{"Lufthansa", 1.15, 0},
		{"Emirates", 1.30, 0},
		{"Wizz Air", 0.65, 1},
		{"EasyJet", 0.80, 1},
	}

	depDate, _ := time.Parse("2006-01-02", departureDate)
	retDate, _ := time.Parse("2006-01-02", returnDate)

	flights := make([]Flight, 0, len(options))
	for i, opt := range options {
		price := float64(int(info.basePrice*opt.priceMod/5) * 5)
		dur := info.duration
		if opt.stops > 0 {
			dur += 90
		}

		depTime := time.Date(depDate.Year(), depDate.Month(), depDate.Day(), 6+i*3, 0, 0, 0, time.UTC)
		retDepTime := time.Date(retDate.Year(), retDate.Month(), retDate.Day(), 8+i*2, 0, 0, 0, time.UTC)

		flights = append(flights, Flight{
			Price:               price,
			Airline:             opt.name,
			DepartureTime:       depTime.Format(time.RFC3339),
			ArrivalTime:         depTime.Add(time.Duration(dur) * time.Minute).Format(time.RFC3339),
			Duration:            formatDurationMin(dur),
			Stops:               opt.stops,
			ReturnDepartureTime: retDepTime.Format(time.RFC3339),
			ReturnArrivalTime:   retDepTime.Add(time.Duration(dur) * time.Minute).Format(time.RFC3339),
			ReturnDuration:      formatDurationMin(dur),
			ReturnStops:         opt.stops,
			Currency:            "USD",
		})
	}
	return flights
}

// GenerateHotels produces estimated hotel options for a destination code.
func GenerateHotels(destination string) []Hotel {
	cityHotels := map[string][]Hotel{
		"CDG": {
			{Name: "Hotel Le Marais", Price: 220, Rating: 4.6, Location: "Le Marais, Paris", Currency: "USD"},
			{Name: "Pullman Paris Tour Eiffel", Price: 280, Rating: 4.5, Location: "7th Arr., Paris", Currency: "USD"},
			{Name: "Ibis Paris Montmartre", Price: 95, Rating: 4.0, Location: "Montmartre, Paris", Currency: "USD"},
			{Name: "Generator Paris", Price: 55, Rating: 3.8, Location: "10th Arr., Paris", Currency: "USD"},
		},
		"LHR": {
			{Name: "Hilton London Tower Bridge", Price: 180, Rating: 4.4, Location: "Tower Bridge, London", Currency: "USD"},
			{Name: "Premier Inn London City", Price: 95, Rating: 4.1, Location: "City of London", Currency: "USD"},
			{Name: "The Hoxton Shoreditch", Price: 165, Rating: 4.5, Location: "Shoreditch, London", Currency: "USD"},
			{Name: "citizenM London Bankside", Price: 145, Rating: 4.4, Location: "Bankside, London", Currency: "USD"},
		},
		"IST": {
			{Name: "Grand Hyatt Istanbul", Price: 180, Rating: 4.7, Location: "Beyoglu, Istanbul", Currency: "USD"},
			{Name: "Sultan Ahmet Palace Hotel", Price: 95, Rating: 4.3, Location: "Sultanahmet, Istanbul", Currency: "USD"},
			{Name: "The Marmara Taksim", Price: 140, Rating: 4.4, Location: "Taksim Square, Istanbul", Currency: "USD"},
		},
		"DXB": {
			{Name: "JW Marriott Marquis", Price: 220, Rating: 4.6, Location: "Business Bay, Dubai", Currency: "USD"},
			{Name: "Rove Downtown", Price: 95, Rating: 4.3, Location: "Downtown Dubai", Currency: "USD"},
			{Name: "Atlantis The Palm", Price: 380, Rating: 4.7, Location: "Palm Jumeirah, Dubai", Currency: "USD"},
		},
		"JFK": {
			{Name: "Pod 51", Price: 130, Rating: 4.1, Location: "Midtown East, New York", Currency: "USD"},
			{Name: "Arlo SoHo", Price: 210, Rating: 4.4, Location: "SoHo, New York", Currency: "USD"},
			{Name: "The Jane", Price: 95, Rating: 3.9, Location: "West Village, New York", Currency: "USD"},
		},
	}

	if hotels, ok := cityHotels[destination]; ok {
		return hotels
	}
	return []Hotel{
		{Name: "Grand City Hotel", Price: 150, Rating: 4.5, Location: "City Center, " + destination, Currency: "USD"},
		{Name: "Business Inn", Price: 95, Rating: 4.2, Location: "Business District, " + destination, Currency: "USD"},
		{Name: "Boutique Residence", Price: 120, Rating: 4.4, Location: "Arts District, " + destination, Currency: "USD"},
		{Name: "Economy Suites", Price: 65, Rating: 3.9, Location: "Near Airport, " + destination, Currency: "USD"},
	}
}

// GenerateWeather produces an estimated forecast for the trip window.
func GenerateWeather(destination, startDate, endDate string) *WeatherSummary {
	start, _ := time.Parse("2006-01-02", startDate)
	end, _ := time.Parse("2006-01-02", endDate)
	if end.Before(start) {
		end = start
	}

	days := int(end.Sub(start).Hours()/24) + 1
	if days > 7 {
		days = 7
	}

	conditions := []string{"Clear", "Clouds", "Clear", "Rain", "Clear", "Clouds", "Clear"}
	forecast := make([]DailyForecast, 0, days)
	for i := 0; i < days; i++ {
		forecast = append(forecast, DailyForecast{
			Date:          start.AddDate(0, 0, i).Format("2006-01-02"),
			TempMin:       12 + float64(i%3),
			TempMax:       21 + float64(i%4),
			Condition:     conditions[i%len(conditions)],
			Description:   "seasonal average",
			Precipitation: 0.1 * float64(i%3),
		})
	}
	return &WeatherSummary{
		Summary:  "Mild conditions expected in " + destination + " (seasonal averages)",
		Forecast: forecast,
	}
}
