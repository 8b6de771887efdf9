// Package googlebooks wraps the Google Books volumes search used as the
// secondary book source.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Client struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/books/v1"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, Client: httpClient}
}

// VolumeSummary is one volume flattened for the search screen.
type VolumeSummary struct {
	VolumeID     string   `json:"volumeId"`
	Title        string   `json:"title"`
	Authors      []string `json:"authors"`
	Description  *string  `json:"description"`
	ThumbnailURL *string  `json:"thumbnailUrl"`
}

type volumesResponse struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title       string   `json:"title"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			ImageLinks  struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search queries volumes by any combination of title, author, and ISBN.
// All empty terms yields an empty result without a request.
func (c *Client) Search(ctx context.Context, title, author, isbn string) ([]VolumeSummary, error) {
	var terms []string
	if title != "" {
		terms = append(terms, "intitle:"+title)
	}
	if author != "" {
		terms = append(terms, "inauthor:"+author)
	}
	if isbn != "" {
		terms = append(terms, "isbn:"+strings.ReplaceAll(isbn, "-", ""))
	}
	if len(terms) == 0 {
		return nil, nil
	}

	u := fmt.Sprintf("%s/volumes?q=%s&maxResults=20", c.BaseURL, url.QueryEscape(strings.Join(terms, " ")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("googlebooks: status %d: %s", resp.StatusCode, string(b))
	}

	var decoded volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	volumes := make([]VolumeSummary, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		summary := VolumeSummary{
			VolumeID: item.ID,
			Title:    item.VolumeInfo.Title,
			Authors:  item.VolumeInfo.Authors,
		}
		if item.VolumeInfo.Description != "" {
			desc := item.VolumeInfo.Description
			summary.Description = &desc
		}
		if item.VolumeInfo.ImageLinks.Thumbnail != "" {
			thumb := item.VolumeInfo.ImageLinks.Thumbnail
			summary.ThumbnailURL = &thumb
		}
		volumes = append(volumes, summary)
	}
	return volumes, nil
}
