package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/partner"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Steps of calls that are not adapter specific
const (
	StepRenderInvoice  = "render_invoice"
	StepRenderContract = "render_contract"
	StepStoreInvoice   = "store_invoice"
	StepPaymentTrigger = "payment_trigger"
	StepDriverSearch   = "driver_search"
	StepLiveLocation   = "live_location"
	StepReportStatus   = "report_status"
)

// ErrRequisiteUnavailable is returned when checkout names a requisite the
// user does not hold.
var ErrRequisiteUnavailable = shared.NewPreconditionError("company requisite not found for this user")

// maxConflictRetries bounds reload-and-reapply loops for updates that are
// safe to reapply (webhooks, live location).
const maxConflictRetries = 3

// transition loads the order, applies fn and commits. No external call is
// involved, so a version conflict is returned to the caller unchanged.
func (s *Service) transition(ctx context.Context, orderID uuid.UUID, ev order.Event, fn func(*order.Order) error) (_ *OrderResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order."+string(ev),
		telemetry.AttrOrderID.String(orderID.String()),
		telemetry.AttrOrderEvent.String(string(ev)),
	)
	defer telemetry.End(span, &err)

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// retryOnConflict reruns fn while it fails with a version conflict. fn must
// reload the order itself.
func retryOnConflict(fn func() error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = fn()
		if !errors.Is(err, shared.ErrConflictingUpdate) {
			return err
		}
	}
	return err
}

func guard(o *order.Order, ev order.Event) error {
	if !order.CanFire(o.Status(), ev) {
		return order.NewInvalidTransitionError(o.Status(), ev)
	}
	return nil
}

// Checkout snapshots one of the user's requisites into the cart and moves
// it to director signature.
func (s *Service) Checkout(ctx context.Context, userID, orderID uuid.UUID, req CheckoutRequest) (*OrderResponse, error) {
	o, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := guard(o, order.EventCheckout); err != nil {
		return nil, err
	}

	requisite, err := s.requisites.FindByID(ctx, req.RequisiteID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrRequisiteUnavailable
		}
		return nil, err
	}
	if requisite.UserID != userID {
		return nil, ErrRequisiteUnavailable
	}

	delivery := order.DeliveryInfo{Address: req.Address, City: req.City, Notes: req.Notes}
	if err := o.Checkout(delivery, requisite.ID, billingSnapshot(requisite)); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

func billingSnapshot(r *partner.CompanyRequisite) order.BillingSnapshot {
	return order.BillingSnapshot{
		CompanyName:   r.CompanyName,
		TaxID:         r.TaxID,
		LegalAddress:  r.LegalAddress,
		ActualAddress: r.ActualAddress,
		DirectorName:  r.DirectorName,
		BankName:      r.BankName,
		IBAN:          r.IBAN,
		SWIFT:         r.SWIFT,
	}
}

// SignInternally records the company director's signature
func (s *Service) SignInternally(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, order.EventInternalSign, func(o *order.Order) error {
		return o.SignInternally(s.now())
	})
}

// ReportPayment is the client's payment declaration. The ERP payment
// trigger is sent first; the order moves to payment_review only once the
// ERP accepted it, so a failed push leaves the order in pending_payment.
func (s *Service) ReportPayment(ctx context.Context, userID, orderID uuid.UUID) (_ *OrderResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.review_payment", telemetry.AttrOrderID.String(orderID.String()))
	defer telemetry.End(span, &err)

	o, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := guard(o, order.EventReviewPayment); err != nil {
		return nil, err
	}

	trigger := paymentTrigger(o, s.now())
	err = s.call(ctx, integration.SystemERP, StepPaymentTrigger, func(ctx context.Context) error {
		return s.erp.PushPaymentTrigger(ctx, trigger)
	})
	if err != nil {
		return nil, s.clientError(o, err)
	}

	if err := o.ReviewPayment(); err != nil {
		return nil, err
	}
	if err := s.commit(detached(ctx), o); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// TriggerDriverSearch fires pay and asks dispatch for a driver. The
// transition is committed before the dispatch call; if dispatch fails the
// order stays in searching_driver and calling again re-sends the request.
func (s *Service) TriggerDriverSearch(ctx context.Context, orderID uuid.UUID) (_ *OrderResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.pay", telemetry.AttrOrderID.String(orderID.String()))
	defer telemetry.End(span, &err)

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status() != order.StatusSearchingDriver {
		if err := o.Pay(); err != nil {
			return nil, err
		}
		if err := s.commit(ctx, o); err != nil {
			return nil, err
		}
	} else {
		s.logger.Info("Re-sending driver search", zap.String("order_id", o.ID.String()))
	}

	req := integration.DriverSearchRequest{
		OrderID: o.ID,
		Number:  o.Number(),
		Pickup:  s.settings.Pickup,
		Dropoff: integration.Location{
			Address: o.Delivery().Address,
			City:    o.Delivery().City,
		},
		RequestedAt: s.now(),
	}
	if b := o.Billing(); b != nil {
		req.Dropoff.Name = b.CompanyName
	}
	err = s.call(ctx, integration.SystemDispatch, StepDriverSearch, func(ctx context.Context) error {
		return s.dispatch.RequestDriverSearch(ctx, req)
	})
	if err != nil {
		return nil, s.clientError(o, err)
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// AssignDriver writes the driver and fires assign_driver in one commit
func (s *Service) AssignDriver(ctx context.Context, orderID uuid.UUID, req AssignDriverRequest) (*OrderResponse, error) {
	info := order.DriverInfo{Name: req.Name, Phone: req.Phone, Plate: req.Plate}
	return s.transition(ctx, orderID, order.EventAssignDriver, func(o *order.Order) error {
		return o.AssignDriver(info, s.now())
	})
}

// DriverArrived records the driver at the pickup warehouse
func (s *Service) DriverArrived(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, order.EventDriverArrived, func(o *order.Order) error {
		return o.MarkDriverArrived(s.now())
	})
}

// StartTrip marks the shipment as on the road
func (s *Service) StartTrip(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, order.EventStartTrip, func(o *order.Order) error {
		return o.StartTrip()
	})
}

// Deliver marks the shipment as handed over
func (s *Service) Deliver(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, order.EventDeliver, func(o *order.Order) error {
		return o.Deliver()
	})
}

// Complete closes the order
func (s *Service) Complete(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, order.EventComplete, func(o *order.Order) error {
		return o.Complete()
	})
}

// UpdateLiveLocation stores the driver position and forwards it to
// dispatch. Forwarding is a notification: its failure is logged and the
// stored position stands.
func (s *Service) UpdateLiveLocation(ctx context.Context, orderID uuid.UUID, req LocationRequest) (*OrderResponse, error) {
	pos := order.Position{Latitude: req.Latitude, Longitude: req.Longitude}
	var o *order.Order
	err := retryOnConflict(func() error {
		var err error
		o, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.UpdatePosition(pos); err != nil {
			return err
		}
		return s.commit(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	err = s.call(ctx, integration.SystemDispatch, StepLiveLocation, func(ctx context.Context) error {
		return s.dispatch.UpdateLiveLocation(ctx, orderID, pos.Latitude, pos.Longitude)
	})
	if err != nil {
		s.logger.Warn("Live location not forwarded to dispatch",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// GenerateDocuments renders the invoice, stores it and fires
// generate_documents with the stored reference. Nothing is committed unless
// both calls succeeded.
func (s *Service) GenerateDocuments(ctx context.Context, orderID uuid.UUID) (_ *OrderResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.generate_documents", telemetry.AttrOrderID.String(orderID.String()))
	defer telemetry.End(span, &err)

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := guard(o, order.EventGenerateDocuments); err != nil {
		return nil, err
	}

	rendered, err := s.render(ctx, o, integration.DocumentInvoice, StepRenderInvoice)
	if err != nil {
		return nil, s.clientError(o, err)
	}

	key := fmt.Sprintf("orders/%s/invoice-%s%s", o.Number(), s.now().UTC().Format("20060102T150405"), rendered.Extension)
	var ref string
	err = s.call(ctx, integration.SystemStorage, StepStoreInvoice, func(ctx context.Context) error {
		var err error
		ref, err = s.artifacts.Put(ctx, key, rendered.Data, rendered.ContentType)
		return err
	})
	if err != nil {
		return nil, s.clientError(o, err)
	}

	if err := o.AttachDocuments(ref); err != nil {
		return nil, err
	}
	if err := s.commit(detached(ctx), o); err != nil {
		return nil, err
	}
	s.logger.Info("Invoice stored",
		zap.String("order_id", o.ID.String()),
		zap.String("ref", ref),
	)
	resp := ToOrderResponse(o)
	return &resp, nil
}

func (s *Service) render(ctx context.Context, o *order.Order, kind integration.DocumentKind, step string) (*integration.RenderedDocument, error) {
	doc, err := buildDocument(o, kind, s.now())
	if err != nil {
		return nil, err
	}
	var rendered *integration.RenderedDocument
	err = s.call(ctx, integration.SystemRenderer, step, func(ctx context.Context) error {
		var err error
		rendered, err = s.renderer.Render(ctx, doc)
		return err
	})
	return rendered, err
}
