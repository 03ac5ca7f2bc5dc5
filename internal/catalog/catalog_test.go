package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/repository/memory"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Len(t, c.Products, 24)
	assert.NotEmpty(t, c.Interactions)

	eliquis, ok := c.Lookup("apixaban")
	require.True(t, ok)
	assert.Equal(t, "Eliquis", eliquis.Name)
	assert.Equal(t, "Cardiovascular", eliquis.TherapeuticArea)
	assert.Equal(t, []string{"Factor Xa", "Thrombin"}, eliquis.AllTargets())

	keytruda, ok := c.Lookup("KEYTRUDA")
	require.True(t, ok)
	profile := keytruda.Profile()
	assert.Equal(t, []string{"PD-1"}, profile.Targets)
	assert.Equal(t, "Melanoma, NSCLC, TNBC", profile.Indication)

	_, ok = c.Lookup("Aspirin")
	assert.False(t, ok)

	names := c.Names()
	assert.Equal(t, "Biktarvy", names[0])
}

func TestKnownInteraction(t *testing.T) {
	c := Default()

	known := c.KnownInteraction("Xarelto", "apixaban")
	require.NotNil(t, known)
	assert.Equal(t, domain.InteractionAntagonism, known.Type)
	assert.Equal(t, domain.SeverityHigh, known.Severity)

	assert.Nil(t, c.KnownInteraction("Eliquis", "Ozempic"))
	assert.Nil(t, c.KnownInteraction("Unknown", "Eliquis"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "invalid yaml",
			yaml: "products: [",
			want: "parsing catalog",
		},
		{
			name: "missing name",
			yaml: "products:\n  - generic: X\n",
			want: "has no name",
		},
		{
			name: "duplicate",
			yaml: "products:\n  - name: A\n  - name: a\n",
			want: "listed twice",
		},
		{
			name: "unknown interaction product",
			yaml: "products:\n  - name: A\ninteractions:\n  - {drug_a: A, drug_b: B, type: Synergy}\n",
			want: "unknown product \"B\"",
		},
		{
			name: "self interaction",
			yaml: "products:\n  - name: A\ninteractions:\n  - {drug_a: A, drug_b: a, type: Synergy}\n",
			want: "with itself",
		},
		{
			name: "missing type",
			yaml: "products:\n  - name: A\n  - name: B\ninteractions:\n  - {drug_a: A, drug_b: B}\n",
			want: "has no type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.Products, len(Default().Products))

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products:\n  - name: Solo\n    targets: [EGFR]\n"), 0o600))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Solo"}, c.Names())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stores := Stores{
		Products:     store.Products(),
		Details:      store.Details(),
		Interactions: store.Interactions(),
	}
	c := Default()

	report, err := Seed(ctx, c, stores, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, len(c.Products), report.ProductsCreated)
	assert.Zero(t, report.ProductsExisting)
	assert.Equal(t, len(c.Interactions), report.Interactions)
	assert.Equal(t, 10, report.Indications)
	assert.Positive(t, report.SideEffects)

	eliquis, err := store.Products().GetByName(ctx, "Eliquis")
	require.NoError(t, err)
	pds, err := store.ListPharmacodynamics(ctx, eliquis.ID)
	require.NoError(t, err)
	require.Len(t, pds, 3)
	assert.Equal(t, "Ki (Factor Xa)", pds[0].Parameter)
	assert.Equal(t, "0.08 nM", pds[0].Value)

	indications, err := store.ListIndications(ctx, eliquis.ID)
	require.NoError(t, err)
	assert.Len(t, indications, 2)

	xarelto, err := store.Products().GetByName(ctx, "Xarelto")
	require.NoError(t, err)
	in, err := store.Interactions().FindBetween(ctx, xarelto.ID, eliquis.ID)
	require.NoError(t, err)
	assert.Equal(t, "High", in.Severity)

	again, err := Seed(ctx, c, stores, quietLogger())
	require.NoError(t, err)
	assert.Zero(t, again.ProductsCreated)
	assert.Equal(t, len(c.Products), again.ProductsExisting)
	assert.Zero(t, again.SideEffects)
	assert.Zero(t, again.Interactions)

	pds, err = store.ListPharmacodynamics(ctx, eliquis.ID)
	require.NoError(t, err)
	assert.Len(t, pds, 3)
}
