package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrProductUnavailable is returned when an inactive product is added to a cart
var ErrProductUnavailable = shared.NewPreconditionError("product is not available for ordering")

// AddToCart adds a product to the user's cart, creating the cart on the
// first item. The catalog price is captured on the line at this moment.
func (s *Service) AddToCart(ctx context.Context, userID uuid.UUID, req AddToCartRequest) (*OrderResponse, error) {
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductUnavailable
	}

	snapshot := order.ProductSnapshot{ID: product.ID, SKU: product.SKU, Name: product.Name, Price: product.Price}
	for attempt := 1; ; attempt++ {
		cart, created, err := s.openCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		if _, err := cart.AddItem(snapshot, req.Quantity); err != nil {
			return nil, err
		}

		if !created {
			if err := s.commit(ctx, cart); err != nil {
				return nil, err
			}
			resp := ToOrderResponse(cart)
			return &resp, nil
		}

		err = s.orders.Create(ctx, cart)
		if errors.Is(err, order.ErrCartExists) && attempt < 2 {
			// a concurrent first item opened the cart; add to that one
			s.logger.Debug("Cart opened concurrently, reloading", zap.String("user_id", userID.String()))
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("Cart created",
			zap.String("order_id", cart.ID.String()),
			zap.String("user_id", userID.String()),
		)
		resp := ToOrderResponse(cart)
		return &resp, nil
	}
}

// openCart returns the user's cart, or a new unsaved one when there is none.
func (s *Service) openCart(ctx context.Context, userID uuid.UUID) (*order.Order, bool, error) {
	cart, err := s.orders.FindCartByUser(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		cart, err = order.NewOrder(userID)
		if err != nil {
			return nil, false, err
		}
		return cart, true, nil
	case err != nil:
		return nil, false, err
	}
	return cart, false, nil
}

// GetCart returns the user's open cart
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (*OrderResponse, error) {
	cart, err := s.orders.FindCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(cart)
	return &resp, nil
}

// UpdateItemQuantity sets the quantity of a cart line and persists the new total
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, orderID, itemID uuid.UUID, req UpdateItemQuantityRequest) (*OrderResponse, error) {
	o, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.UpdateItemQuantity(itemID, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// RemoveItem deletes a cart line and persists the new total
func (s *Service) RemoveItem(ctx context.Context, userID, orderID, itemID uuid.UUID) (*OrderResponse, error) {
	o, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.RemoveItem(itemID); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetOrder returns an order visible to the actor
func (s *Service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.canSee(o) {
		return nil, order.ErrOrderNotFound
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListOrders lists the user's orders, newest first
func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]OrderResponse, int64, error) {
	orders, total, err := s.orders.FindByUser(ctx, userID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToOrderResponse(o)
	}
	return out, total, nil
}
