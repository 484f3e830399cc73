package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"tripscout/cache"
	"tripscout/handlers"
	"tripscout/pipeline"
	"tripscout/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is a local-dev convenience; production sets env vars directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using environment variables")
	}

	db, err := cache.Open(getEnv("CACHE_DB_PATH", "tripscout-cache.db"))
	if err != nil {
		log.Fatalf("❌ Failed to open lookup cache: %v", err)
	}
	defer db.Close()
	log.Println("✅ Lookup cache ready")

	// ── Vendor clients ────────────────────────────────────────────────────
	var amadeus *services.AmadeusClient
	if id, secret := os.Getenv("AMADEUS_CLIENT_ID"), os.Getenv("AMADEUS_CLIENT_SECRET"); id != "" && secret != "" {
		baseURL := "https://api.amadeus.com"
		if env := os.Getenv("AMADEUS_ENV"); env == "" || env == "test" {
			baseURL = "https://test.api.amadeus.com"
		}
		tokens := services.NewTokenSource(id, secret, baseURL+"/v1/security/oauth2/token", nil)
		amadeus = services.NewAmadeusClient(baseURL, tokens, nil)
		log.Println("✅ Amadeus API configured")
	} else {
		log.Println("⚠️  AMADEUS_CLIENT_ID or AMADEUS_CLIENT_SECRET not set — flight/hotel search will use estimated data")
	}

	var weather *services.WeatherClient
	if key := os.Getenv("OPENWEATHER_API_KEY"); key != "" {
		weather = services.NewWeatherClient(key, getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"), nil)
		log.Println("✅ OpenWeather API configured")
	} else {
		log.Println("⚠️  OPENWEATHER_API_KEY not set — forecasts will use seasonal estimates")
	}

	ai := services.NewAIClient(
		os.Getenv("OPENAI_API_KEY"),
		os.Getenv("OPENAI_MODEL"),
		getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		nil,
	)
	if ai.Configured() {
		log.Println("✅ AI itinerary generation configured")
	} else {
		log.Println("⚠️  OPENAI_API_KEY not set — itinerary generation will fail over to an error stage")
	}

	photos := services.NewPhotosClient(os.Getenv("UNSPLASH_ACCESS_KEY"), "https://api.unsplash.com", nil)

	// ── Core services ─────────────────────────────────────────────────────
	// Assign through the interface types only when configured; a typed nil
	// pointer would otherwise defeat the resolver's vendor checks.
	var search services.CodeSearcher
	if amadeus != nil {
		search = amadeus
	}
	var geo services.Geocoder
	if weather != nil {
		geo = weather
	}
	resolver, err := services.NewLocationResolver(db, search, geo)
	if err != nil {
		log.Fatalf("❌ Failed to initialize location resolver: %v", err)
	}

	sessions := pipeline.NewSessionStore(1 * time.Hour)

	h := &handlers.Handler{
		Gateways: pipeline.Gateways{
			Locations: resolver,
			Weather:   services.NewWeatherGateway(weather),
			Flights:   services.NewFlightGateway(amadeus),
			Hotels:    services.NewHotelGateway(amadeus),
			Planner:   ai,
			Photos:    photos,
		},
		Sessions: sessions,
		Resolver: resolver,
		CacheDB:  db,
	}

	// ── HTTP surface ──────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.SetTrustedProxies([]string{"0.0.0.0/0"})

	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	for _, u := range strings.Split(os.Getenv("FRONTEND_URL"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			allowedOrigins = append(allowedOrigins, u)
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthHandler)
		api.POST("/plan", h.PlanHandler)
		api.GET("/plan/:session", h.SessionHandler)
		api.GET("/locations", h.LocationsHandler)
		api.POST("/export", h.ExportHandler)
		api.GET("/download/:id", h.DownloadHandler)
		api.GET("/cache/stats", h.CacheStatsHandler)
		api.POST("/cache/cleanup", h.CacheCleanupHandler)
	}

	port := getEnv("PORT", "8080")
	log.Printf("🚀 TripScout backend starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
