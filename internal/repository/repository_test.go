package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/letscience-intel-server/internal/database"
	"github.com/letscience-intel-server/internal/domain"
)

// generateTestPassword creates a secure random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := testLogger()

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	databaseURL := "postgres://testuser:" + testPassword + "@" + host + ":" + port.Port() + "/testdb?sslmode=disable"
	migrationRunner, err := database.NewMigrationRunner(databaseURL, "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}

	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestProductRepository(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewProductRepository(db.Pool, testLogger())

	keytruda := &domain.Product{
		Name:             "Keytruda",
		Description:      "Pembrolizumab, a PD-1 blocking antibody",
		TargetIndication: "Melanoma",
		TherapeuticArea:  "Oncology",
		DevelopmentPhase: "Approved",
	}
	require.NoError(t, repo.Create(ctx, keytruda))
	assert.NotZero(t, keytruda.ID)
	assert.False(t, keytruda.CreatedAt.IsZero())

	t.Run("duplicate name conflicts", func(t *testing.T) {
		err := repo.Create(ctx, &domain.Product{Name: "Keytruda"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("invalid product rejected", func(t *testing.T) {
		err := repo.Create(ctx, &domain.Product{Name: "  "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("get by id and name", func(t *testing.T) {
		got, err := repo.GetByID(ctx, keytruda.ID)
		require.NoError(t, err)
		assert.Equal(t, "Melanoma", got.TargetIndication)

		got, err = repo.GetByName(ctx, "keytruda")
		require.NoError(t, err)
		assert.Equal(t, keytruda.ID, got.ID)

		_, err = repo.GetByID(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list is ordered and paginated", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &domain.Product{Name: "Eliquis"}))
		require.NoError(t, repo.Create(ctx, &domain.Product{Name: "Ozempic"}))

		products, err := repo.List(ctx, 2, 0)
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "Eliquis", products[0].Name)
		assert.Equal(t, "Keytruda", products[1].Name)

		products, err = repo.List(ctx, 10, 2)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Ozempic", products[0].Name)
	})

	t.Run("update", func(t *testing.T) {
		keytruda.DevelopmentPhase = "Phase 3"
		require.NoError(t, repo.Update(ctx, keytruda))

		got, err := repo.GetByID(ctx, keytruda.ID)
		require.NoError(t, err)
		assert.Equal(t, "Phase 3", got.DevelopmentPhase)

		missing := &domain.Product{ID: 999999, Name: "Ghost"}
		assert.ErrorIs(t, repo.Update(ctx, missing), domain.ErrNotFound)
	})

	t.Run("details", func(t *testing.T) {
		isNew, err := repo.AddSideEffect(ctx, keytruda.ID, "Fatigue")
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = repo.AddSideEffect(ctx, keytruda.ID, "Fatigue")
		require.NoError(t, err)
		assert.False(t, isNew)

		_, err = repo.AddSideEffect(ctx, keytruda.ID, "Colitis")
		require.NoError(t, err)

		effects, err := repo.ListSideEffects(ctx, keytruda.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Colitis", "Fatigue"}, effects)

		_, err = repo.AddSideEffect(ctx, 999999, "Rash")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		pd := &domain.Pharmacodynamics{ProductID: keytruda.ID, Parameter: "Kd", Value: "29", Unit: "pM", Target: "PD-1"}
		require.NoError(t, repo.AddPharmacodynamics(ctx, pd))
		pds, err := repo.ListPharmacodynamics(ctx, keytruda.ID)
		require.NoError(t, err)
		require.Len(t, pds, 1)
		assert.Equal(t, "PD-1", pds[0].Target)

		require.NoError(t, repo.AddMilestone(ctx, &domain.Milestone{ProductID: keytruda.ID, Date: *date(2014, 9, 4), Event: "FDA approval", Phase: "Approved"}))
		require.NoError(t, repo.AddMilestone(ctx, &domain.Milestone{ProductID: keytruda.ID, Date: *date(2011, 1, 1), Event: "First in human", Phase: "Phase 1"}))
		milestones, err := repo.ListMilestones(ctx, keytruda.ID)
		require.NoError(t, err)
		require.Len(t, milestones, 2)
		assert.Equal(t, "First in human", milestones[0].Event)

		require.NoError(t, repo.AddIndication(ctx, &domain.Indication{ProductID: keytruda.ID, DiseaseName: "Melanoma", ApprovalStatus: "Approved"}))
		indications, err := repo.ListIndications(ctx, keytruda.ID)
		require.NoError(t, err)
		require.Len(t, indications, 1)

		require.NoError(t, repo.AddSynthesisStep(ctx, keytruda.ID, "The antibody was purified by protein A chromatography."))
		steps, err := repo.ListSynthesisSteps(ctx, keytruda.ID)
		require.NoError(t, err)
		assert.Len(t, steps, 1)

		require.NoError(t, repo.AddSynthesisScheme(ctx, &domain.SynthesisScheme{ProductID: keytruda.ID, Name: "CHO expression"}))
		schemes, err := repo.ListSynthesisSchemes(ctx, keytruda.ID)
		require.NoError(t, err)
		assert.Len(t, schemes, 1)

		empty, err := repo.ListSideEffects(ctx, 999999)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, keytruda.ID))
		assert.ErrorIs(t, repo.Delete(ctx, keytruda.ID), domain.ErrNotFound)

		effects, err := repo.ListSideEffects(ctx, keytruda.ID)
		require.NoError(t, err)
		assert.Empty(t, effects)
	})
}

func TestIntelligenceAndInteractionRepositories(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	products := NewProductRepository(db.Pool, testLogger())
	intel := NewIntelligenceRepository(db.Pool, testLogger())
	interactions := NewInteractionRepository(db.Pool, testLogger())

	eliquis := &domain.Product{Name: "Eliquis"}
	xarelto := &domain.Product{Name: "Xarelto"}
	require.NoError(t, products.Create(ctx, eliquis))
	require.NoError(t, products.Create(ctx, xarelto))

	t.Run("patent upsert reports new rows", func(t *testing.T) {
		patent := &domain.Patent{
			ProductID:       eliquis.ID,
			SourceID:        "US6967208B2",
			Title:           "Lactam-containing compounds as factor Xa inhibitors",
			Assignee:        "Bristol-Myers Squibb",
			PublicationDate: date(2005, 11, 22),
			ExpiryDate:      date(2025, 11, 22),
		}
		isNew, err := intel.UpsertPatent(ctx, patent)
		require.NoError(t, err)
		assert.True(t, isNew)

		patent.Status = "Expired"
		isNew, err = intel.UpsertPatent(ctx, patent)
		require.NoError(t, err)
		assert.False(t, isNew)

		patents, err := intel.ListPatents(ctx, eliquis.ID)
		require.NoError(t, err)
		require.Len(t, patents, 1)
		assert.Equal(t, "Expired", patents[0].Status)
		assert.Equal(t, 2025, patents[0].ExpiryDate.Year())
	})

	t.Run("articles and trials", func(t *testing.T) {
		isNew, err := intel.UpsertArticle(ctx, &domain.Article{ProductID: eliquis.ID, SourceID: "21870978", Title: "ARISTOTLE", PublicationDate: date(2011, 9, 15)})
		require.NoError(t, err)
		assert.True(t, isNew)
		_, err = intel.UpsertArticle(ctx, &domain.Article{ProductID: eliquis.ID, SourceID: "30000001", Title: "Later study", PublicationDate: date(2019, 1, 1)})
		require.NoError(t, err)

		articles, err := intel.ListArticles(ctx, eliquis.ID)
		require.NoError(t, err)
		require.Len(t, articles, 2)
		assert.Equal(t, "Later study", articles[0].Title)

		isNew, err = intel.UpsertTrial(ctx, &domain.Trial{ProductID: eliquis.ID, NCTID: "NCT00412984", Title: "ARISTOTLE", Phase: "PHASE3", Conditions: []string{"Atrial Fibrillation"}})
		require.NoError(t, err)
		assert.True(t, isNew)
		_, err = intel.UpsertTrial(ctx, &domain.Trial{ProductID: eliquis.ID, NCTID: "NCT00000002", Title: "No conditions"})
		require.NoError(t, err)

		trials, err := intel.ListTrials(ctx, eliquis.ID)
		require.NoError(t, err)
		require.Len(t, trials, 2)

		_, err = intel.UpsertTrial(ctx, &domain.Trial{ProductID: 999999, NCTID: "NCT1", Title: "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("conferences", func(t *testing.T) {
		require.NoError(t, intel.AddConference(ctx, &domain.Conference{ProductID: eliquis.ID, Title: "Late-breaking data", ConferenceName: "ESC", Date: date(2023, 8, 26)}))
		conferences, err := intel.ListConferences(ctx, eliquis.ID)
		require.NoError(t, err)
		assert.Len(t, conferences, 1)
	})

	t.Run("interaction pairs are unordered", func(t *testing.T) {
		interaction := &domain.DrugInteraction{
			DrugAID:           xarelto.ID,
			DrugBID:           eliquis.ID,
			InteractionType:   domain.InteractionAntagonism,
			EffectDescription: "Duplicate anticoagulation",
			Severity:          domain.SeverityHigh,
		}
		require.NoError(t, interactions.Create(ctx, interaction))
		assert.Less(t, interaction.DrugAID, interaction.DrugBID)

		found, err := interactions.FindBetween(ctx, xarelto.ID, eliquis.ID)
		require.NoError(t, err)
		assert.Equal(t, interaction.ID, found.ID)

		found, err = interactions.FindBetween(ctx, eliquis.ID, xarelto.ID)
		require.NoError(t, err)
		assert.Equal(t, "Duplicate anticoagulation", found.EffectDescription)

		err = interactions.Create(ctx, &domain.DrugInteraction{DrugAID: eliquis.ID, DrugBID: xarelto.ID, InteractionType: domain.InteractionSynergy})
		assert.ErrorIs(t, err, domain.ErrConflict)

		list, err := interactions.ListForProduct(ctx, xarelto.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, interactions.Delete(ctx, interaction.ID))
		_, err = interactions.FindBetween(ctx, eliquis.ID, xarelto.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, interactions.Delete(ctx, interaction.ID), domain.ErrNotFound)
	})
}

func TestUserRepository(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewUserRepository(db.Pool, testLogger())

	user := &domain.User{Username: "analyst", Email: "analyst@example.com", PasswordHash: "hash", IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	err := repo.Create(ctx, &domain.User{Username: "analyst", Email: "other@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "username")

	err = repo.Create(ctx, &domain.User{Username: "other", Email: "analyst@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "email")

	got, err := repo.GetByEmail(ctx, "ANALYST@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Nil(t, got.LastLogin)

	now := time.Now().UTC().Truncate(time.Second)
	got.TOTPSecret = "JBSWY3DPEHPK3PXP"
	got.Is2FAEnabled = true
	got.LastLogin = &now
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByUsername(ctx, "analyst")
	require.NoError(t, err)
	assert.True(t, got.Is2FAEnabled)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got.TOTPSecret)
	require.NotNil(t, got.LastLogin)
	assert.WithinDuration(t, now, *got.LastLogin, time.Second)

	_, err = repo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, repo.Update(ctx, &domain.User{ID: 999999}), domain.ErrNotFound)
}
