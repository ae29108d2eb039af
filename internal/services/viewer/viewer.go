// Package viewer pages through the narrated stops of a purchased guide
package viewer

import (
	"context"
	"errors"

	"github.com/findosh/audioguide/internal/models"
	"github.com/findosh/audioguide/internal/services/catalog"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrAccessDenied = errors.New("guide has not been purchased")
	ErrNoContent    = errors.New("no content available")
)

type Catalog interface {
	FetchProductByID(ctx context.Context, id int64) (*models.Product, error)
	FetchPOIs(ctx context.Context, productID int64, languageCode string) ([]*models.POI, error)
}

// Gate decides whether the device may view a guide
type Gate interface {
	Allowed(id any) bool
}

// Tour is one stop of a guide together with its position
type Tour struct {
	Product  *models.Product `json:"product"`
	Stop     *models.POI     `json:"stop"`
	Index    int             `json:"index"`
	Total    int             `json:"total"`
	HasPrev  bool            `json:"has_prev"`
	HasNext  bool            `json:"has_next"`
	Progress int             `json:"progress"`
	Stops    []StopSummary   `json:"stops"`
}

// StopSummary is a table-of-contents entry
type StopSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type Service struct {
	catalog Catalog
}

func NewService(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

// Open returns stop index of a guide, clamped to the available stops
func (s *Service) Open(ctx context.Context, gate Gate, productID int64, languageCode string, index int) (*Tour, error) {
	product, err := s.catalog.FetchProductByID(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	if !gate.Allowed(product.ID) {
		return nil, ErrAccessDenied
	}

	pois, err := s.catalog.FetchPOIs(ctx, product.ID, languageCode)
	if err != nil {
		return nil, err
	}
	if len(pois) == 0 {
		return nil, ErrNoContent
	}

	index = max(0, min(index, len(pois)-1))

	stops := make([]StopSummary, len(pois))
	for i, p := range pois {
		stops[i] = StopSummary{ID: p.ID, Title: p.Title}
	}

	return &Tour{
		Product:  product,
		Stop:     pois[index],
		Index:    index,
		Total:    len(pois),
		HasPrev:  index > 0,
		HasNext:  index < len(pois)-1,
		Progress: ((index+1)*200 + len(pois)) / (2 * len(pois)),
		Stops:    stops,
	}, nil
}
