package domain

import (
	"context"
)

// ProductStore persists the product catalog
type ProductStore interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	List(ctx context.Context, limit, offset int) ([]*Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
}

// ProductDetailStore persists the per-product scientific detail tables
type ProductDetailStore interface {
	// AddSideEffect reports whether the effect was new for the product.
	AddSideEffect(ctx context.Context, productID int64, effect string) (bool, error)
	ListSideEffects(ctx context.Context, productID int64) ([]string, error)
	AddPharmacodynamics(ctx context.Context, pd *Pharmacodynamics) error
	ListPharmacodynamics(ctx context.Context, productID int64) ([]*Pharmacodynamics, error)
	AddMilestone(ctx context.Context, milestone *Milestone) error
	ListMilestones(ctx context.Context, productID int64) ([]*Milestone, error)
	AddIndication(ctx context.Context, indication *Indication) error
	ListIndications(ctx context.Context, productID int64) ([]*Indication, error)
	AddSynthesisStep(ctx context.Context, productID int64, step string) error
	ListSynthesisSteps(ctx context.Context, productID int64) ([]string, error)
	AddSynthesisScheme(ctx context.Context, scheme *SynthesisScheme) error
	ListSynthesisSchemes(ctx context.Context, productID int64) ([]*SynthesisScheme, error)
}

// IntelligenceStore persists patents, articles, trials and conferences.
// Upserts report whether the record was new for the product.
type IntelligenceStore interface {
	UpsertPatent(ctx context.Context, patent *Patent) (bool, error)
	UpsertArticle(ctx context.Context, article *Article) (bool, error)
	UpsertTrial(ctx context.Context, trial *Trial) (bool, error)
	AddConference(ctx context.Context, conference *Conference) error
	ListPatents(ctx context.Context, productID int64) ([]*Patent, error)
	ListArticles(ctx context.Context, productID int64) ([]*Article, error)
	ListTrials(ctx context.Context, productID int64) ([]*Trial, error)
	ListConferences(ctx context.Context, productID int64) ([]*Conference, error)
}

// InteractionStore persists curated drug interactions
type InteractionStore interface {
	Create(ctx context.Context, interaction *DrugInteraction) error
	// FindBetween returns the interaction for the unordered pair, or ErrNotFound.
	FindBetween(ctx context.Context, drugAID, drugBID int64) (*DrugInteraction, error)
	ListForProduct(ctx context.Context, productID int64) ([]*DrugInteraction, error)
	Delete(ctx context.Context, id int64) error
}

// UserStore persists platform accounts
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetExternalAPIConfig() *ExternalAPIConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
