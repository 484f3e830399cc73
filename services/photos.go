package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

type Photo struct {
	URL             string `json:"url"`
	Alt             string `json:"alt"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`
	DownloadURL     string `json:"download_url"`
}

// PhotosClient wraps the Unsplash search API. Photos are decoration:
// every failure degrades to an empty result.
type PhotosClient struct {
	accessKey  string
	baseURL    string
	httpClient *http.Client
}

func NewPhotosClient(accessKey, baseURL string, httpClient *http.Client) *PhotosClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &PhotosClient{accessKey: accessKey, baseURL: baseURL, httpClient: httpClient}
}

// Search returns up to count photos for query, or nil on any failure.
func (c *PhotosClient) Search(ctx context.Context, query string, count int) []Photo {
	if c.accessKey == "" {
		return nil
	}
	if count <= 0 {
		count = 3
	}

	path := fmt.Sprintf("/search/photos?query=%s&per_page=%d&orientation=landscape",
		url.QueryEscape(query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️  photo search for %q failed: %v", query, err)
		return nil
	}
	defer resp.Body.Close()

	body, _ := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️  photo search for %q returned %d", query, resp.StatusCode)
		return nil
	}

	var result struct {
		Results []struct {
			AltDescription string `json:"alt_description"`
			URLs           struct {
				Regular string `json:"regular"`
			} `json:"urls"`
			Links struct {
				Download string `json:"download"`
			} `json:"links"`
			User struct {
				Name  string `json:"name"`
				Links struct {
					HTML string `json:"html"`
				} `json:"links"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		log.Printf("⚠️  photo search for %q: bad payload: %v", query, err)
		return nil
	}

	photos := make([]Photo, 0, len(result.Results))
	for _, r := range result.Results {
		photos = append(photos, Photo{
			URL:             r.URLs.Regular,
			Alt:             r.AltDescription,
			Photographer:    r.User.Name,
			PhotographerURL: r.User.Links.HTML,
			DownloadURL:     r.Links.Download,
		})
	}
	return photos
}
