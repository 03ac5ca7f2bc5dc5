package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIndication(t *testing.T) {
	tests := []struct {
		text    string
		area    string
		disease string
	}{
		{"Unresectable or metastatic MELANOMA", "Oncology", "Melanoma"},
		{"Metastatic non-small cell lung cancer", "Oncology", "Solid Tumor"},
		{"Advanced solid tumors", "Oncology", "Oncology"},
		{"Type 2 diabetes mellitus", "Endocrinology", "Diabetes Mellitus"},
		{"Chronic weight management", "Endocrinology", "Metabolic Disorder"},
		{"Reduce the risk of stroke in nonvalvular atrial fibrillation", "Cardiovascular", "Cardiovascular Disease"},
		{"Treatment of deep vein thrombosis", "Cardiovascular", "Thrombosis"},
		{"Moderately to severely active rheumatoid arthritis", "Immunology", "Rheumatoid Arthritis"},
		{"Moderate to severe plaque psoriasis", "Immunology", "Psoriasis"},
		{"HIV-1 infection in adults", "Infectious Disease", "HIV-1 Infection"},
		{"Relapsing forms of multiple sclerosis", "Neurology", "Neurological Disorder"},
		{"Cystic fibrosis in patients 2 years and older", "Respiratory", "Cystic Fibrosis"},
		{"Severe eosinophilic asthma", "Respiratory", "Asthma"},
		{"Vitamin deficiency", GeneralArea, GeneralIndication},
		{"", GeneralArea, GeneralIndication},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			area, disease := ClassifyIndication(tt.text)
			assert.Equal(t, tt.area, area)
			assert.Equal(t, tt.disease, disease)
		})
	}
}
