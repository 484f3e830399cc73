package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AIClient wraps an OpenAI-compatible chat completions endpoint in both
// streaming and single-shot form.
type AIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewAIClient(apiKey, model, baseURL string, httpClient *http.Client) *AIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &AIClient{apiKey: apiKey, model: model, baseURL: baseURL, httpClient: httpClient}
}

// Configured reports whether an API key is present.
func (c *AIClient) Configured() bool { return c.apiKey != "" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *AIClient) newRequest(ctx context.Context, prompt string, stream bool) (*http.Request, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a travel planner. Respond with a single JSON object only, no prose outside it."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.6,
		Stream:      stream,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// StreamPlan runs a streaming completion, invoking onDelta synchronously
// for each content fragment as it arrives.
func (c *AIClient) StreamPlan(ctx context.Context, prompt string, onDelta func(text string)) error {
	if c.apiKey == "" {
		return fmt.Errorf("ai not configured")
	}

	req, err := c.newRequest(ctx, prompt, true)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := readBody(resp)
		return fmt.Errorf("ai stream error (%d): %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			onDelta(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

// CompletePlan runs a single-shot completion and returns the raw text.
func (c *AIClient) CompletePlan(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("ai not configured")
	}

	req, err := c.newRequest(ctx, prompt, false)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse ai response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from ai")
	}
	return result.Choices[0].Message.Content, nil
}

// BuildPlanPrompt assembles the itinerary prompt from trip parameters and
// the data gathered by earlier stages.
func BuildPlanPrompt(origin, destination, departDate, returnDate string, travelers int, budget float64,
	weather *WeatherSummary, flights []Flight, hotels []Hotel, estimated bool) string {

	var b strings.Builder
	fmt.Fprintf(&b, "Plan a trip: %s to %s | %s to %s | %d traveler(s) | Budget: $%.0f\n",
		origin, destination, departDate, returnDate, travelers, budget)
	if estimated {
		b.WriteString("Note: prices are estimated, real-time data unavailable.\n")
	}

	if weather != nil {
		fmt.Fprintf(&b, "\nWeather: %s\n", weather.Summary)
		for _, d := range weather.Forecast {
			fmt.Fprintf(&b, "  %s: %.0f-%.0fC %s\n", d.Date, d.TempMin, d.TempMax, d.Condition)
		}
	}

	b.WriteString("\nFlights available:\n")
	for i, f := range flights {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "  %d. %s $%.0f (%d stop(s), %s)\n", i+1, f.Airline, f.Price, f.Stops, f.Duration)
	}

	b.WriteString("\nHotels (per night):\n")
	for i, h := range hotels {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "  %d. %s $%.0f/night (%.1f stars) %s\n", i+1, h.Name, h.Price, h.Rating, h.Location)
	}

	b.WriteString(`
Return a JSON object with exactly these fields:
summary (string), destination (string), tripDuration (number of days),
selectedFlight {name, price, reason}, selectedHotel {name, price, reason},
dailyItinerary (array of {day, title, activities[]}),
budgetAnalysis {estimatedTotal, withinBudget, notes},
travelTips (string array), packingRecommendations (string array).`)

	return b.String()
}
