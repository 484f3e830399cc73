package handlers

import (
	"log"
	"net/http"
	"time"

	"tripscout/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExportRequest struct {
	SessionID           string `json:"session_id" binding:"required"`
	SelectedFlightIndex int    `json:"selected_flight_index"`
	SelectedHotelIndex  int    `json:"selected_hotel_index"`
	TravelerName        string `json:"traveler_name"`
}

type ExportResponse struct {
	ItineraryID string `json:"itinerary_id"`
	PDFURL      string `json:"pdf_url"`
}

// ExportHandler renders the completed plan for a session to PDF and
// stores the bytes for download.
func (h *Handler) ExportHandler(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	bundle, ok := h.Sessions.Bundle(req.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}
	if len(bundle.Results.Flights) == 0 || len(bundle.Results.Hotels) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Session has no flight or hotel results to export"})
		return
	}

	if req.SelectedFlightIndex < 0 || req.SelectedFlightIndex >= len(bundle.Results.Flights) {
		req.SelectedFlightIndex = 0
	}
	if req.SelectedHotelIndex < 0 || req.SelectedHotelIndex >= len(bundle.Results.Hotels) {
		req.SelectedHotelIndex = 0
	}
	flight := bundle.Results.Flights[req.SelectedFlightIndex]
	hotel := bundle.Results.Hotels[req.SelectedHotelIndex]

	depDate, _ := time.Parse("2006-01-02", bundle.Request.DepartDate)
	retDate, _ := time.Parse("2006-01-02", bundle.Request.ReturnDate)
	numNights := int(retDate.Sub(depDate).Hours() / 24)
	totalCost := flight.Price + hotel.Price*float64(numNights)

	pdfBytes, err := services.GeneratePDFBytes(services.PDFData{
		TravelerName: req.TravelerName,
		Origin:       bundle.Request.DepartFrom,
		Destination:  bundle.Request.ArriveAt,
		DepartDate:   bundle.Request.DepartDate,
		ReturnDate:   bundle.Request.ReturnDate,
		Flight:       flight,
		Hotel:        hotel,
		NumNights:    numNights,
		TotalCost:    totalCost,
		Plan:         bundle.Results.Plan,
		IsEstimated:  bundle.Results.Source == "estimated",
	})
	if err != nil {
		log.Printf("❌ PDF generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
		return
	}

	id := uuid.New().String()
	h.Sessions.SavePDF(id, pdfBytes)
	log.Printf("✅ PDF generated for session %s (%d bytes)", req.SessionID, len(pdfBytes))

	c.JSON(http.StatusOK, ExportResponse{
		ItineraryID: id,
		PDFURL:      "/api/download/" + id,
	})
}

// DownloadHandler serves a previously exported PDF.
func (h *Handler) DownloadHandler(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing itinerary ID"})
		return
	}

	data, ok := h.Sessions.PDF(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF not found or expired"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=tripscout-itinerary.pdf")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", data)
}
