package external

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/letscience-intel-server/internal/domain"
)

const (
	defaultOpenFDAURL = "https://api.fda.gov"
	dailyMedURL       = "https://dailymed.nlm.nih.gov/dailymed/drugInfo.cfm?setid=%s"
)

// DrugLabel is the subset of an openFDA drug label used by ingestion
type DrugLabel struct {
	SetID            string `json:"set_id"`
	BrandName        string `json:"brand_name"`
	GenericName      string `json:"generic_name"`
	Manufacturer     string `json:"manufacturer"`
	Description      string `json:"description"`
	Indications      string `json:"indications"`
	AdverseReactions string `json:"adverse_reactions"`
	URL              string `json:"url"`
}

// OpenFDAClient reads drug labels from the openFDA API
type OpenFDAClient struct {
	api *apiClient
}

// NewOpenFDAClient creates a new openFDA client
func NewOpenFDAClient(config domain.SourceConfig) *OpenFDAClient {
	return &OpenFDAClient{api: newAPIClient("openFDA", defaultOpenFDAURL, config, 4)}
}

type labelResponse struct {
	Results []struct {
		SetID               string   `json:"set_id"`
		Description         []string `json:"description"`
		IndicationsAndUsage []string `json:"indications_and_usage"`
		AdverseReactions    []string `json:"adverse_reactions"`
		OpenFDA             struct {
			BrandName        []string `json:"brand_name"`
			GenericName      []string `json:"generic_name"`
			ManufacturerName []string `json:"manufacturer_name"`
		} `json:"openfda"`
	} `json:"results"`
}

// Label returns the label of a brand. An unknown brand yields domain.ErrNotFound.
func (c *OpenFDAClient) Label(ctx context.Context, brand string) (*DrugLabel, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, &domain.ValidationError{Field: "brand", Message: "brand name is required"}
	}

	params := url.Values{
		"search": {fmt.Sprintf("openfda.brand_name:%q", brand)},
		"limit":  {"1"},
	}
	var resp labelResponse
	if err := c.api.getJSON(ctx, "/drug/label.json", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch label for %s: %w", brand, err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no label for %s: %w", brand, domain.ErrNotFound)
	}

	res := resp.Results[0]
	label := &DrugLabel{
		SetID:            res.SetID,
		BrandName:        first(res.OpenFDA.BrandName, brand),
		GenericName:      first(res.OpenFDA.GenericName, "Unknown"),
		Manufacturer:     first(res.OpenFDA.ManufacturerName, "Unknown"),
		Description:      first(res.Description, ""),
		Indications:      first(res.IndicationsAndUsage, ""),
		AdverseReactions: first(res.AdverseReactions, ""),
	}
	if label.SetID != "" {
		label.URL = fmt.Sprintf(dailyMedURL, label.SetID)
	}
	return label, nil
}

// TopBrands returns the most frequently labeled brand names
func (c *OpenFDAClient) TopBrands(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{
		"count": {"openfda.brand_name.exact"},
		"limit": {strconv.Itoa(limit)},
	}
	var resp struct {
		Results []struct {
			Term  string `json:"term"`
			Count int    `json:"count"`
		} `json:"results"`
	}
	if err := c.api.getJSON(ctx, "/drug/label.json", params, &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to count brand names: %w", err)
	}

	brands := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		brands = append(brands, r.Term)
	}
	return brands, nil
}

func first(values []string, fallback string) string {
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return fallback
	}
	return values[0]
}
