package order

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"go.uber.org/zap"
)

// Webhooks assume at-least-once delivery in any order. Both handlers are
// idempotent on order state; the optional delivery id only saves the
// repeated work.

// ConfirmPaymentExternally applies the ERP payment verdict. A repeated
// "verified" is a success no-op and a "not verified" never reverts an
// earlier verification. Orders not yet at pending_payment reject the
// callback as an invalid transition, like an early signature callback.
func (s *Service) ConfirmPaymentExternally(ctx context.Context, deliveryID string, req PaymentWebhookRequest) (*WebhookResult, error) {
	if s.seen(ctx, deliveryID) {
		return s.duplicateDelivery(ctx, deliveryID, func() (*order.Order, error) {
			return s.findByRef(ctx, req.OrderRef)
		})
	}

	var result *WebhookResult
	err := retryOnConflict(func() error {
		o, err := s.findByRef(ctx, req.OrderRef)
		if err != nil {
			return err
		}
		result = &WebhookResult{OrderID: o.ID}
		changed, err := o.ConfirmPayment(req.Verified, s.now())
		if err != nil {
			s.logger.Warn("Payment callback before pending_payment rejected",
				zap.String("order_id", o.ID.String()),
				zap.String("status", o.Status().String()),
			)
			return err
		}
		if !changed {
			result.Status = o.Status().String()
			result.Duplicate = req.Verified
			s.logger.Info("Payment callback ignored",
				zap.String("order_id", o.ID.String()),
				zap.Bool("verified", req.Verified),
				zap.Bool("already_verified", o.PaymentVerified()),
			)
			return nil
		}
		if err := s.commit(ctx, o); err != nil {
			return err
		}
		result.Status = o.Status().String()
		result.Applied = true
		s.logger.Info("Payment verified", zap.String("order_id", o.ID.String()), zap.String("number", o.Number()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.remember(ctx, deliveryID)
	return result, nil
}

// ConfirmSignatureExternally applies the provider's "counterparty signed"
// callback. Orders already past pending_signature acknowledge it as a
// duplicate; orders not yet at pending_signature reject it as an invalid
// transition so the provider redelivers later.
func (s *Service) ConfirmSignatureExternally(ctx context.Context, deliveryID string, req SignatureWebhookRequest) (*WebhookResult, error) {
	if s.seen(ctx, deliveryID) {
		return s.duplicateDelivery(ctx, deliveryID, func() (*order.Order, error) {
			return s.orders.FindBySignatureDocument(ctx, req.DocumentID)
		})
	}

	var result *WebhookResult
	err := retryOnConflict(func() error {
		o, err := s.orders.FindBySignatureDocument(ctx, req.DocumentID)
		if err != nil {
			return err
		}
		result = &WebhookResult{OrderID: o.ID}
		if o.Status().IsAtLeast(order.StatusPendingPayment) {
			result.Status = o.Status().String()
			result.Duplicate = true
			s.logger.Info("Signature callback for signed order ignored",
				zap.String("order_id", o.ID.String()),
				zap.String("status", o.Status().String()),
			)
			return nil
		}
		if err := o.CompleteSignature(s.now()); err != nil {
			return err
		}
		if err := s.commit(ctx, o); err != nil {
			return err
		}
		result.Status = o.Status().String()
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.remember(ctx, deliveryID)
	return result, nil
}

// Track returns the public view for a tracking link
func (s *Service) Track(ctx context.Context, token string) (*TrackingResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, order.ErrOrderNotFound
	}
	o, err := s.orders.FindByTrackingToken(ctx, token)
	if err != nil {
		return nil, err
	}
	resp := ToTrackingResponse(o)
	return &resp, nil
}

// findByRef resolves the order reference an external system holds: the
// order id or its public number.
func (s *Service) findByRef(ctx context.Context, ref string) (*order.Order, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.orders.FindByID(ctx, id)
	}
	if ref == "" {
		return nil, order.ErrOrderNotFound
	}
	return s.orders.FindByNumber(ctx, ref)
}

func (s *Service) duplicateDelivery(ctx context.Context, deliveryID string, find func() (*order.Order, error)) (*WebhookResult, error) {
	s.logger.Info("Duplicate webhook delivery", zap.String("delivery_id", deliveryID))
	o, err := find()
	if err != nil {
		return nil, err
	}
	return &WebhookResult{OrderID: o.ID, Status: o.Status().String(), Duplicate: true}, nil
}

// seen reports whether the delivery id was already processed. Store errors
// are logged and treated as unseen; order state still guards the update.
func (s *Service) seen(ctx context.Context, deliveryID string) bool {
	if deliveryID == "" || s.deliveries == nil {
		return false
	}
	done, err := s.deliveries.IsProcessed(ctx, deliveryKeyPrefix+deliveryID)
	if err != nil {
		s.logger.Warn("Delivery dedup lookup failed", zap.String("delivery_id", deliveryID), zap.Error(err))
		return false
	}
	return done
}

func (s *Service) remember(ctx context.Context, deliveryID string) {
	if deliveryID == "" || s.deliveries == nil {
		return
	}
	if _, err := s.deliveries.MarkProcessed(detached(ctx), deliveryKeyPrefix+deliveryID, s.settings.DeliveryTTL); err != nil {
		s.logger.Warn("Failed to record webhook delivery", zap.String("delivery_id", deliveryID), zap.Error(err))
	}
}
