package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/cache"
	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

// OrderService exposes order history and manual order creation.
type OrderService struct {
	users  port.UserRepository
	orders port.OrderRepository
	cache  *cache.Loader
	logger *zap.Logger
	now    func() time.Time
}

// CreateOrderInput carries a bearer-authenticated order creation request.
type CreateOrderInput struct {
	UserID     string
	ProductID  string
	LicenseKey string
}

// NewOrderService constructs an OrderService.
func NewOrderService(users port.UserRepository, orders port.OrderRepository, cacheLoader *cache.Loader, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		users:  users,
		orders: orders,
		cache:  cacheLoader,
		logger: log,
		now:    time.Now,
	}
}

// List returns the caller's orders, newest first.
func (s *OrderService) List(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get returns a single order, enforcing ownership.
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lookup order: %w", err)
	}

	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	return order, nil
}

// Create records an order for the authenticated user with an already issued
// license key, snapshotting identity fields at creation time.
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	product, err := domain.GetProduct(input.ProductID)
	if err != nil {
		return nil, ErrProductUnknown
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()
	username := ""
	if user.Username != nil {
		username = *user.Username
	}

	order, err := s.orders.Create(ctx, domain.Order{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Email:          user.Email,
		Username:       username,
		AccountAgeDays: user.AccountAgeDays(now),
		ProductID:      product.ID,
		ProductName:    product.Name,
		AmountCents:    product.PriceCents,
		Currency:       "usd",
		LicenseKey:     strings.TrimSpace(input.LicenseKey),
		Status:         domain.OrderStatusCompleted,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, cache.ProfileKey(user.ID))
	}

	return order, nil
}
