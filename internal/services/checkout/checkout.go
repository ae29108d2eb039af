// Package checkout simulates payment for a guide and records the purchase in
// the device's library
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/findosh/audioguide/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrAuthRequired = errors.New("authentication required")

type Principal interface {
	CurrentUser(ctx context.Context) *models.User
}

type ProductFetcher interface {
	FetchProductByID(ctx context.Context, id int64) (*models.Product, error)
}

type Ledger interface {
	Add(ctx context.Context, guide models.PurchasedGuide) error
	IsPurchased(id any) bool
}

// Receipt describes a completed checkout
type Receipt struct {
	Guide        models.PurchasedGuide `json:"guide"`
	Amount       decimal.Decimal       `json:"amount"`
	AlreadyOwned bool                  `json:"already_owned"`
}

type Service struct {
	products ProductFetcher
	delay    time.Duration
	log      *zap.Logger
}

// NewService creates a checkout service; delay simulates payment processing
func NewService(products ProductFetcher, delay time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{products: products, delay: delay, log: log}
}

// Purchase charges the effective price of a product and adds it to ledger.
// Guides already in the ledger are not charged again.
func (s *Service) Purchase(ctx context.Context, who Principal, ledger Ledger, productID int64) (*Receipt, error) {
	if who == nil {
		return nil, ErrAuthRequired
	}
	user := who.CurrentUser(ctx)
	if user == nil {
		return nil, ErrAuthRequired
	}

	product, err := s.products.FetchProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	guide := models.NewPurchasedGuide(product)

	if ledger.IsPurchased(guide.ID) {
		return &Receipt{Guide: guide, Amount: decimal.Zero, AlreadyOwned: true}, nil
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if err := ledger.Add(ctx, guide); err != nil {
		return nil, err
	}

	amount := product.EffectivePrice()
	s.log.Info("guide purchased",
		zap.String("user_id", user.ID),
		zap.Int64("product_id", product.ID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return &Receipt{Guide: guide, Amount: amount}, nil
}
