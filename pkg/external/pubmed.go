package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/letscience-intel-server/internal/domain"
)

const (
	defaultPubMedURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	pubMedArticleURL = "https://pubmed.ncbi.nlm.nih.gov/%s/"
	maxListedAuthors = 3
)

// PubMedClient searches NCBI PubMed through the E-utilities JSON API
type PubMedClient struct {
	api    *apiClient
	config domain.SourceConfig
}

// NewPubMedClient creates a new PubMed API client
func NewPubMedClient(config domain.SourceConfig) *PubMedClient {
	// NCBI allows 3 requests per second without an API key, 10 with one.
	rps := 3.0
	if config.APIKey != "" {
		rps = 10
	}
	return &PubMedClient{
		api:    newAPIClient("PubMed", defaultPubMedURL, config, rps),
		config: config,
	}
}

type eSearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type eSummaryDoc struct {
	UID             string `json:"uid"`
	Title           string `json:"title"`
	PubDate         string `json:"pubdate"`
	SortPubDate     string `json:"sortpubdate"`
	FullJournalName string `json:"fulljournalname"`
	Source          string `json:"source"`
	Authors         []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

// Search returns the newest articles mentioning query in their title or
// abstract.
func (p *PubMedClient) Search(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Message: "query is required"}
	}

	ids, err := p.searchIDs(ctx, query, maxResults(limit, p.config))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.IntelligenceRecord{}, nil
	}

	docs, err := p.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.IntelligenceRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.record())
	}
	return records, nil
}

func (p *PubMedClient) params() url.Values {
	params := url.Values{"db": {"pubmed"}, "retmode": {"json"}}
	if p.config.APIKey != "" {
		params.Set("api_key", p.config.APIKey)
	}
	if p.config.Email != "" {
		params.Set("email", p.config.Email)
	}
	return params
}

func (p *PubMedClient) searchIDs(ctx context.Context, query string, max int) ([]string, error) {
	params := p.params()
	params.Set("term", query+"[Title/Abstract]")
	params.Set("sort", "date")
	params.Set("retmax", strconv.Itoa(max))

	var resp eSearchResponse
	if err := p.api.getJSON(ctx, "/esearch.fcgi", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to search PubMed: %w", err)
	}
	return resp.Result.IDList, nil
}

// summaries returns the document summaries in the order of ids
func (p *PubMedClient) summaries(ctx context.Context, ids []string) ([]*eSummaryDoc, error) {
	params := p.params()
	params.Set("id", strings.Join(ids, ","))

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := p.api.getJSON(ctx, "/esummary.fcgi", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to get article summaries: %w", err)
	}

	docs := make([]*eSummaryDoc, 0, len(ids))
	for _, id := range ids {
		raw, ok := resp.Result[id]
		if !ok {
			continue
		}
		var doc eSummaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode summary of %s: %w", id, err)
		}
		if doc.UID == "" {
			doc.UID = id
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func (d *eSummaryDoc) record() *domain.IntelligenceRecord {
	doi := ""
	for _, aid := range d.ArticleIDs {
		if aid.IDType == "doi" {
			doi = aid.Value
			break
		}
	}

	authors := make([]string, 0, maxListedAuthors+1)
	for i, a := range d.Authors {
		if i == maxListedAuthors {
			authors = append(authors, "et al.")
			break
		}
		authors = append(authors, a.Name)
	}

	published := parseDate(d.SortPubDate)
	if published == nil {
		published = parseDate(d.PubDate)
	}

	journal := d.FullJournalName
	if journal == "" {
		journal = d.Source
	}

	return &domain.IntelligenceRecord{
		SourceID:        d.UID,
		SourceType:      domain.SourceArticle,
		Title:           strings.TrimSpace(d.Title),
		Authors:         authors,
		PublicationDate: published,
		URL:             fmt.Sprintf(pubMedArticleURL, d.UID),
		Metadata: map[string]interface{}{
			"doi":     doi,
			"pmid":    d.UID,
			"journal": journal,
		},
	}
}
