// Package catalog provides data access for guide products, their points of
// interest and user accounts. Writes require an authenticated principal.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/findosh/audioguide/internal/kv"
	"github.com/findosh/audioguide/internal/models"
	"github.com/findosh/audioguide/internal/storage"
	"go.uber.org/zap"
)

// DemoUsersKey is the device-local key read when the user store is unavailable
const DemoUsersKey = "demo-users"

var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrAdminRequired   = errors.New("admin access required")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidLanguage = errors.New("unsupported language")
)

// Principal is the caller on whose behalf an operation runs
type Principal interface {
	CurrentUser(ctx context.Context) *models.User
	IsAdmin(ctx context.Context) bool
}

type ProductStore interface {
	ListPublished(ctx context.Context) ([]*models.Product, error)
	ListAll(ctx context.Context) ([]*models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
}

type POIStore interface {
	ListByProduct(ctx context.Context, productID int64, languageCode string) ([]*models.POI, error)
	InsertBulk(ctx context.Context, pois []*models.POI) error
	DeleteByProduct(ctx context.Context, productID int64, languageCode string) (int64, error)
}

type UserLister interface {
	List(ctx context.Context) ([]*models.User, error)
}

// Service is the catalog data-access layer
type Service struct {
	products ProductStore
	pois     POIStore
	users    UserLister
	log      *zap.Logger
}

// NewService creates a catalog service
func NewService(products ProductStore, pois POIStore, users UserLister, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{products: products, pois: pois, users: users, log: log}
}

// Languages returns the narration languages a guide may offer
func (s *Service) Languages() []models.Language {
	out := make([]models.Language, len(models.AvailableLanguages))
	copy(out, models.AvailableLanguages)
	return out
}

// FetchProducts returns published products, newest first
func (s *Service) FetchProducts(ctx context.Context) ([]*models.Product, error) {
	return s.products.ListPublished(ctx)
}

// FetchAllProducts returns every product including drafts
func (s *Service) FetchAllProducts(ctx context.Context, who Principal) ([]*models.Product, error) {
	if err := requireAuth(ctx, who); err != nil {
		return nil, err
	}
	return s.products.ListAll(ctx)
}

// FetchProductByID returns one product or ErrProductNotFound
func (s *Service) FetchProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// CreateProduct validates and stores a new product
func (s *Service) CreateProduct(ctx context.Context, who Principal, p *models.Product) (*models.Product, error) {
	if err := requireAuth(ctx, who); err != nil {
		return nil, err
	}
	p.ID = 0
	if err := prepare(p); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.Int64("product_id", p.ID), zap.String("title", p.Title))
	return p, nil
}

// UpdateProduct validates and replaces the product with the given id
func (s *Service) UpdateProduct(ctx context.Context, who Principal, id int64, p *models.Product) (*models.Product, error) {
	if err := requireAuth(ctx, who); err != nil {
		return nil, err
	}
	p.ID = id
	if err := prepare(p); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	s.log.Info("product updated", zap.Int64("product_id", id))
	return s.FetchProductByID(ctx, id)
}

// FetchPOIs returns the stops of a product ordered by language then position.
// An empty languageCode returns all languages.
func (s *Service) FetchPOIs(ctx context.Context, productID int64, languageCode string) ([]*models.POI, error) {
	return s.pois.ListByProduct(ctx, productID, languageCode)
}

// InsertPOIsBulk stores a batch of stops. An empty batch is a no-op.
func (s *Service) InsertPOIsBulk(ctx context.Context, who Principal, pois []*models.POI) ([]*models.POI, error) {
	if err := requireAuth(ctx, who); err != nil {
		return nil, err
	}
	if len(pois) == 0 {
		return []*models.POI{}, nil
	}
	for _, p := range pois {
		p.Title = strings.TrimSpace(p.Title)
		if !models.IsAvailableLanguage(p.LanguageCode) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, p.LanguageCode)
		}
	}
	if err := s.pois.InsertBulk(ctx, pois); err != nil {
		return nil, err
	}
	return pois, nil
}

// DeletePOIsByProduct removes the stops of a product, optionally for one language
func (s *Service) DeletePOIsByProduct(ctx context.Context, who Principal, productID int64, languageCode string) (int64, error) {
	if err := requireAuth(ctx, who); err != nil {
		return 0, err
	}
	n, err := s.pois.DeleteByProduct(ctx, productID, languageCode)
	if err != nil {
		return 0, err
	}
	s.log.Info("pois deleted", zap.Int64("product_id", productID), zap.String("language", languageCode), zap.Int64("count", n))
	return n, nil
}

// ReplacePOIs swaps the stops of one language for a new set. Stops are
// renumbered from zero, keeping their relative order_index order.
func (s *Service) ReplacePOIs(ctx context.Context, who Principal, productID int64, languageCode string, pois []*models.POI) ([]*models.POI, error) {
	if err := requireAuth(ctx, who); err != nil {
		return nil, err
	}
	if !models.IsAvailableLanguage(languageCode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, languageCode)
	}
	if _, err := s.DeletePOIsByProduct(ctx, who, productID, languageCode); err != nil {
		return nil, err
	}
	sort.SliceStable(pois, func(i, j int) bool { return pois[i].OrderIndex < pois[j].OrderIndex })
	for i, p := range pois {
		p.ProductID = productID
		p.LanguageCode = languageCode
		p.OrderIndex = i
	}
	return s.InsertPOIsBulk(ctx, who, pois)
}

// FetchUsers lists accounts for administrators. When the user store fails the
// device's locally stored demo users are returned instead.
func (s *Service) FetchUsers(ctx context.Context, who Principal, local kv.Store) ([]*models.User, error) {
	if err := requireAuth(ctx, who); err != nil {
		return nil, err
	}
	if !who.IsAdmin(ctx) {
		return nil, ErrAdminRequired
	}

	users, err := s.users.List(ctx)
	if err == nil {
		if users == nil {
			users = []*models.User{}
		}
		return users, nil
	}

	s.log.Warn("user store unavailable, using local demo users", zap.Error(err))
	return loadDemoUsers(ctx, local), nil
}

func loadDemoUsers(ctx context.Context, local kv.Store) []*models.User {
	users := []*models.User{}
	if local == nil {
		return users
	}
	b, err := local.Get(ctx, DemoUsersKey)
	if err != nil {
		return users
	}
	if err := json.Unmarshal(b, &users); err != nil || users == nil {
		return []*models.User{}
	}
	return users
}

func requireAuth(ctx context.Context, who Principal) error {
	if who == nil || who.CurrentUser(ctx) == nil {
		return ErrAuthRequired
	}
	return nil
}

func prepare(p *models.Product) error {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	for _, code := range p.AvailableLanguages {
		if !models.IsAvailableLanguage(code) {
			return fmt.Errorf("%w: %q", ErrInvalidLanguage, code)
		}
	}
	return nil
}
