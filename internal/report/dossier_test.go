package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letscience-intel-server/internal/domain"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestExpiryYear(t *testing.T) {
	tests := []struct {
		name   string
		patent domain.Patent
		want   string
	}{
		{"explicit expiry", domain.Patent{ExpiryDate: day(2028, 6, 30), PublicationDate: day(2003, 1, 1)}, "2028"},
		{"publication plus twenty", domain.Patent{PublicationDate: day(2015, 5, 1)}, "2035"},
		{"no dates", domain.Patent{}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpiryYear(&tt.patent))
		})
	}
}

func TestTruncateTitle(t *testing.T) {
	short := "KEYNOTE-189"
	assert.Equal(t, short, TruncateTitle(short))

	exact := strings.Repeat("a", 80)
	assert.Equal(t, exact, TruncateTitle(exact))

	long := strings.Repeat("b", 95)
	got := TruncateTitle(long)
	assert.Equal(t, strings.Repeat("b", 80)+"...", got)
}

func testIntelligence(trials, patents int) *domain.ProductIntelligence {
	intel := &domain.ProductIntelligence{
		Product: &domain.Product{Name: "Keytruda", Description: "Anti-PD-1 monoclonal antibody."},
	}
	for i := 0; i < trials; i++ {
		intel.Trials = append(intel.Trials, &domain.Trial{
			NCTID:  fmt.Sprintf("NCT%08d", i),
			Title:  fmt.Sprintf("Trial number %d", i),
			Phase:  "PHASE3",
			Status: "RECRUITING",
		})
	}
	for i := 0; i < patents; i++ {
		intel.Patents = append(intel.Patents, &domain.Patent{
			SourceID:        fmt.Sprintf("US-%d", 1000+i),
			Title:           "Antibodies to human programmed death receptor PD-1",
			PublicationDate: day(2015, 5, 1),
		})
	}
	return intel
}

func TestGenerate(t *testing.T) {
	g := NewGenerator()
	g.Compress = false
	g.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	require.NoError(t, g.Generate(testIntelligence(25, 12), &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Contains(t, out, "LetScience Intelligence Dossier: Keytruda")
	assert.Contains(t, out, "Generated on 2026-10-19 | Page 1")
	assert.Contains(t, out, "1. Executive Summary")
	assert.Contains(t, out, "2. Clinical Development")
	assert.Contains(t, out, "3. Intellectual Property")
	assert.Contains(t, out, "Total Trials Found: 25")
	assert.Contains(t, out, "Expires: 2035")

	assert.Contains(t, out, "Trial number 19")
	assert.NotContains(t, out, "Trial number 20")
	assert.Contains(t, out, "Patent: US-1009")
	assert.NotContains(t, out, "Patent: US-1010")
}

func TestGenerate_NoDescription(t *testing.T) {
	g := NewGenerator()
	g.Compress = false

	intel := testIntelligence(0, 0)
	intel.Product.Description = ""

	var buf bytes.Buffer
	require.NoError(t, g.Generate(intel, &buf))
	assert.Contains(t, buf.String(), "No description available.")
}

func TestGenerate_RequiresProduct(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewGenerator().Generate(nil, &buf))
	assert.Error(t, NewGenerator().Generate(&domain.ProductIntelligence{}, &buf))
}
