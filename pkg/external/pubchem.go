package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/letscience-intel-server/internal/domain"
)

const (
	defaultPubChemURL  = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	compoundProperties = "MolecularWeight,MolecularFormula,CanonicalSMILES,IsomericSMILES,IUPACName"
)

// CompoundProperties are the PubChem properties of a small molecule
type CompoundProperties struct {
	CID              int64  `json:"CID"`
	MolecularFormula string `json:"MolecularFormula"`
	// PubChem has reported the weight both as a number and as a string.
	MolecularWeight json.Number `json:"MolecularWeight"`
	CanonicalSMILES string `json:"CanonicalSMILES"`
	IsomericSMILES  string `json:"IsomericSMILES"`
	IUPACName       string `json:"IUPACName"`
}

// PubChemClient reads compound properties from PubChem PUG REST
type PubChemClient struct {
	api *apiClient
}

// NewPubChemClient creates a new PubChem client
func NewPubChemClient(config domain.SourceConfig) *PubChemClient {
	return &PubChemClient{api: newAPIClient("PubChem", defaultPubChemURL, config, 5)}
}

// Properties returns the properties of the compound called name. Biologics
// and unknown names yield domain.ErrNotFound.
func (c *PubChemClient) Properties(ctx context.Context, name string) (*CompoundProperties, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "compound name is required"}
	}

	path := fmt.Sprintf("/compound/name/%s/property/%s/JSON", url.PathEscape(name), compoundProperties)
	var resp struct {
		PropertyTable struct {
			Properties []CompoundProperties `json:"Properties"`
		} `json:"PropertyTable"`
	}
	if err := c.api.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch compound %s: %w", name, err)
	}
	if len(resp.PropertyTable.Properties) == 0 {
		return nil, fmt.Errorf("no compound named %s: %w", name, domain.ErrNotFound)
	}
	props := resp.PropertyTable.Properties[0]
	return &props, nil
}
