package analysis

import "strings"

// Fallback classification when no indication rule matches
const (
	GeneralArea       = "General Medicine"
	GeneralIndication = "General Indication"
)

type indicationRule struct {
	area     string
	disease  string
	keywords []string
}

// Checked top to bottom; specific diseases precede their catch-all area.
var indicationRules = []indicationRule{
	{"Oncology", "Melanoma", []string{"melanoma"}},
	{"Oncology", "Lymphoma", []string{"lymphoma"}},
	{"Oncology", "Leukemia", []string{"leukemia"}},
	{"Oncology", "Carcinoma", []string{"carcinoma"}},
	{"Oncology", "Solid Tumor", []string{"breast cancer", "lung cancer", "prostate cancer"}},
	{"Oncology", "Oncology", []string{"cancer", "tumor", "oncology", "metastatic"}},

	{"Endocrinology", "Diabetes Mellitus", []string{"diabetes"}},
	{"Endocrinology", "Metabolic Disorder", []string{"insulin", "glucose", "metabolic", "obesity", "weight"}},

	{"Cardiovascular", "Hypertension", []string{"hypertension"}},
	{"Cardiovascular", "Thrombosis", []string{"thrombosis", "embolism"}},
	{"Cardiovascular", "Hyperlipidemia", []string{"cholesterol"}},
	{"Cardiovascular", "Cardiovascular Disease", []string{"heart", "cardiac", "blood pressure", "stroke", "cardiovascular"}},

	{"Immunology", "Rheumatoid Arthritis", []string{"arthritis"}},
	{"Immunology", "Psoriasis", []string{"psoriasis"}},
	{"Immunology", "Crohn's Disease", []string{"crohn"}},
	{"Immunology", "Ulcerative Colitis", []string{"colitis"}},
	{"Immunology", "Autoimmune Disease", []string{"autoimmune", "inflammation", "lupus"}},

	{"Infectious Disease", "HIV-1 Infection", []string{"hiv"}},
	{"Infectious Disease", "Hepatitis", []string{"hepatitis"}},
	{"Infectious Disease", "Infectious Disease", []string{"virus", "bacteria", "infection", "antibiotic", "antiviral"}},

	{"Neurology", "Major Depressive Disorder", []string{"depression"}},
	{"Neurology", "Schizophrenia", []string{"schizophrenia"}},
	{"Neurology", "Alzheimer's Disease", []string{"alzheimer"}},
	{"Neurology", "Epilepsy", []string{"epilepsy", "seizure"}},
	{"Neurology", "Migraine", []string{"migraine"}},
	{"Neurology", "Neurological Disorder", []string{"anxiety", "pain", "neurology", "sclerosis"}},

	{"Respiratory", "Asthma", []string{"asthma"}},
	{"Respiratory", "COPD", []string{"copd"}},
	{"Respiratory", "Cystic Fibrosis", []string{"cystic fibrosis"}},
	{"Respiratory", "Respiratory Disease", []string{"pulmonary", "respiratory", "lung"}},
}

// ClassifyIndication maps free-text indication or label text to a
// therapeutic area and a specific disease.
func ClassifyIndication(text string) (area, disease string) {
	lower := strings.ToLower(text)
	for _, rule := range indicationRules {
		if containsAny(lower, rule.keywords) {
			return rule.area, rule.disease
		}
	}
	return GeneralArea, GeneralIndication
}
