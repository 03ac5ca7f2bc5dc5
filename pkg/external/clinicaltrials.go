package external

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/letscience-intel-server/internal/domain"
)

const (
	defaultClinicalTrialsURL = "https://clinicaltrials.gov"
	clinicalTrialStudyURL    = "https://clinicaltrials.gov/study/%s"
)

// ClinicalTrialsClient queries the ClinicalTrials.gov v2 studies API
type ClinicalTrialsClient struct {
	api    *apiClient
	config domain.SourceConfig
}

// NewClinicalTrialsClient creates a new ClinicalTrials.gov client
func NewClinicalTrialsClient(config domain.SourceConfig) *ClinicalTrialsClient {
	return &ClinicalTrialsClient{
		api:    newAPIClient("ClinicalTrials.gov", defaultClinicalTrialsURL, config, 5),
		config: config,
	}
}

type studiesResponse struct {
	Studies []struct {
		ProtocolSection protocolSection `json:"protocolSection"`
	} `json:"studies"`
	NextPageToken string `json:"nextPageToken"`
}

type protocolSection struct {
	IdentificationModule struct {
		NCTID         string `json:"nctId"`
		BriefTitle    string `json:"briefTitle"`
		OfficialTitle string `json:"officialTitle"`
	} `json:"identificationModule"`
	StatusModule struct {
		OverallStatus        string     `json:"overallStatus"`
		StartDateStruct      dateStruct `json:"startDateStruct"`
		CompletionDateStruct dateStruct `json:"completionDateStruct"`
	} `json:"statusModule"`
	SponsorCollaboratorsModule struct {
		LeadSponsor struct {
			Name string `json:"name"`
		} `json:"leadSponsor"`
	} `json:"sponsorCollaboratorsModule"`
	DescriptionModule struct {
		BriefSummary string `json:"briefSummary"`
	} `json:"descriptionModule"`
	ConditionsModule struct {
		Conditions []string `json:"conditions"`
	} `json:"conditionsModule"`
	DesignModule struct {
		Phases         []string `json:"phases"`
		EnrollmentInfo struct {
			Count int `json:"count"`
		} `json:"enrollmentInfo"`
	} `json:"designModule"`
}

type dateStruct struct {
	Date string `json:"date"`
}

// Search returns the studies matching query
func (c *ClinicalTrialsClient) Search(ctx context.Context, query string, limit int) ([]*domain.IntelligenceRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Message: "query is required"}
	}

	params := url.Values{
		"query.term": {query},
		"pageSize":   {strconv.Itoa(maxResults(limit, c.config))},
	}
	var resp studiesResponse
	if err := c.api.getJSON(ctx, "/api/v2/studies", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to search clinical trials: %w", err)
	}

	records := make([]*domain.IntelligenceRecord, 0, len(resp.Studies))
	for _, s := range resp.Studies {
		if s.ProtocolSection.IdentificationModule.NCTID == "" {
			continue
		}
		records = append(records, s.ProtocolSection.record())
	}
	return records, nil
}

func (p *protocolSection) record() *domain.IntelligenceRecord {
	id := p.IdentificationModule
	title := id.OfficialTitle
	if title == "" {
		title = id.BriefTitle
	}
	status := p.StatusModule.OverallStatus
	phase := strings.Join(p.DesignModule.Phases, ", ")
	if phase == "" {
		phase = "N/A"
	}
	conditions := p.ConditionsModule.Conditions
	if conditions == nil {
		conditions = []string{}
	}

	abstract := p.DescriptionModule.BriefSummary
	if abstract == "" {
		abstract = fmt.Sprintf("Study Status: %s. Phases: %s", status, phase)
	}

	metadata := map[string]interface{}{
		"status":     status,
		"phase":      phase,
		"conditions": conditions,
		"sponsor":    p.SponsorCollaboratorsModule.LeadSponsor.Name,
		"enrollment": p.DesignModule.EnrollmentInfo.Count,
	}
	if d := parseDate(p.StatusModule.StartDateStruct.Date); d != nil {
		metadata["start_date"] = d.Format("2006-01-02")
	}
	if d := parseDate(p.StatusModule.CompletionDateStruct.Date); d != nil {
		metadata["completion_date"] = d.Format("2006-01-02")
	}

	return &domain.IntelligenceRecord{
		SourceID:   id.NCTID,
		SourceType: domain.SourceClinicalTrial,
		Title:      title,
		Abstract:   abstract,
		URL:        fmt.Sprintf(clinicalTrialStudyURL, id.NCTID),
		Metadata:   metadata,
	}
}
