// Package openlibrary wraps the small slice of the OpenLibrary API the app
// uses: work search, ISBN lookup, and work detail fetch.
package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var ErrNotFound = errors.New("openlibrary: not found")

type Client struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, Client: httpClient}
}

// WorkSummary is one search hit, flattened for the search screen.
type WorkSummary struct {
	OLID             string   `json:"olid"`
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	FirstPublishYear *int     `json:"firstPublishYear"`
	CoverURL         *string  `json:"coverUrl"`
}

// WorkDetail is the subset of a work record the app stores.
type WorkDetail struct {
	OLID        string  `json:"olid"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type searchResponse struct {
	Docs []searchDoc `json:"docs"`
}

type searchDoc struct {
	Key              string   `json:"key"` // "/works/OL45804W"
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear *int     `json:"first_publish_year"`
	CoverI           *int     `json:"cover_i"`
}

// Search runs a work-type search with the field selection the search screen
// needs.
func (c *Client) Search(ctx context.Context, query string) ([]WorkSummary, error) {
	u := fmt.Sprintf(
		"%s/search.json?q=%s&type=work&fields=title,key,author_name,first_publish_year,cover_i&limit=20",
		c.BaseURL, url.QueryEscape(query),
	)

	var resp searchResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	works := make([]WorkSummary, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		summary := WorkSummary{
			OLID:             strings.TrimPrefix(doc.Key, "/works/"),
			Title:            doc.Title,
			Authors:          doc.AuthorName,
			FirstPublishYear: doc.FirstPublishYear,
		}
		if doc.CoverI != nil {
			cover := fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", *doc.CoverI)
			summary.CoverURL = &cover
		}
		works = append(works, summary)
	}
	return works, nil
}

type isbnRecord struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Cover struct {
		Medium string `json:"medium"`
	} `json:"cover"`
	Identifiers struct {
		OpenLibrary []string `json:"openlibrary"`
	} `json:"identifiers"`
}

// LookupISBN resolves a scanned or typed ISBN to a book summary. Hyphens in
// the ISBN are tolerated.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*WorkSummary, error) {
	isbn = strings.ReplaceAll(isbn, "-", "")
	key := "ISBN:" + isbn
	u := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data", c.BaseURL, url.QueryEscape(key))

	var resp map[string]isbnRecord
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	record, ok := resp[key]
	if !ok {
		return nil, ErrNotFound
	}

	summary := &WorkSummary{Title: record.Title}
	for _, a := range record.Authors {
		if a.Name != "" {
			summary.Authors = append(summary.Authors, a.Name)
		}
	}
	if len(record.Identifiers.OpenLibrary) > 0 {
		summary.OLID = record.Identifiers.OpenLibrary[0]
	}
	if record.Cover.Medium != "" {
		cover := record.Cover.Medium
		summary.CoverURL = &cover
	}
	return summary, nil
}

type workResponse struct {
	Title       string          `json:"title"`
	Description json.RawMessage `json:"description"`
}

// GetWork fetches one work record. The description field is either a bare
// string or a {type, value} object depending on the record's age.
func (c *Client) GetWork(ctx context.Context, olid string) (*WorkDetail, error) {
	u := fmt.Sprintf("%s/works/%s.json", c.BaseURL, url.PathEscape(olid))

	var resp workResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	detail := &WorkDetail{OLID: olid, Title: resp.Title}
	if desc := decodeDescription(resp.Description); desc != "" {
		detail.Description = &desc
	}
	return detail, nil
}

func decodeDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Value
	}
	return ""
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("openlibrary: status %d: %s", resp.StatusCode, string(b))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
