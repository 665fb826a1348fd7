package barcode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// ProductInfo is the normalized payload returned by a lookup.
type ProductInfo struct {
	Barcode     string `json:"barcode"`
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// Client queries the Open Food Facts product database.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds Client. timeout bounds the upstream call so a slow
// provider cannot stall the sale screen.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// ValidateCode checks that code is all digits with an EAN-8, UPC-A, EAN-13
// or GTIN-14 length.
func ValidateCode(code string) error {
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return shared.InvalidInput("barcode must be 8, 12, 13 or 14 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return shared.InvalidInput("barcode must contain only digits")
		}
	}
	return nil
}

type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName   string `json:"product_name"`
		Brands        string `json:"brands"`
		Categories    string `json:"categories"`
		GenericName   string `json:"generic_name"`
		ImageFrontURL string `json:"image_front_url"`
	} `json:"product"`
}

// Lookup fetches product details for a barcode. Unknown barcodes and
// upstream failures both surface as NotFound so the POS screen falls back
// to manual entry.
func (c *Client) Lookup(ctx context.Context, code string) (ProductInfo, error) {
	if err := ValidateCode(code); err != nil {
		return ProductInfo{}, err
	}

	url := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProductInfo{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "atlas-pos/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return ProductInfo{}, shared.NotFound("barcode", code)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProductInfo{}, shared.NotFound("barcode", code)
	}

	var body offResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ProductInfo{}, shared.NotFound("barcode", code)
	}
	if body.Status != 1 || body.Product.ProductName == "" {
		return ProductInfo{}, shared.NotFound("barcode", code)
	}

	return ProductInfo{
		Barcode:     code,
		Name:        body.Product.ProductName,
		Brand:       firstSegment(body.Product.Brands),
		Category:    firstSegment(body.Product.Categories),
		Description: body.Product.GenericName,
		ImageURL:    body.Product.ImageFrontURL,
	}, nil
}

// firstSegment keeps the first entry of an Open Food Facts comma list.
func firstSegment(v string) string {
	if i := strings.Index(v, ","); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
