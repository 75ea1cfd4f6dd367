package order

import (
	"context"
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/order"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Signature handshake steps as reported on errors and spans
const (
	StepUploadContract  = "upload_blob"
	StepCreateDocument  = "create_document"
	StepCreateRoute     = "create_route"
	StepRequestContent  = "request_content"
	StepDownloadContent = "download_content"
	StepUploadSignature = "upload_signature"
	StepSaveSignature   = "save_signature"
)

// RequestContractSignature runs the contract signature handshake and
// returns the content the client must sign.
//
// The handshake is not transactional on the provider side, so the output of
// every step is written to the order as soon as it arrives. A repeated call
// resumes after the last recorded step: the contract is uploaded, registered
// and routed at most once per successful step. Content-to-sign is always
// requested again, which issues a fresh ticket and invalidates older ones.
func (s *Service) RequestContractSignature(ctx context.Context, userID, orderID uuid.UUID) (_ *ContentToSignResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.request_signature", telemetry.AttrOrderID.String(orderID.String()))
	defer telemetry.End(span, &err)

	o, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.CanRequestSignature(); err != nil {
		return nil, err
	}
	billing := o.Billing()
	counterparty := billing.TaxID
	log := s.logger.With(zap.String("order_id", o.ID.String()), zap.String("number", o.Number()))

	// record persists a step output even if the client has gone away.
	record := func(step string, apply func() error) error {
		if err := apply(); err != nil {
			return err
		}
		if err := s.orders.SaveWithLock(detached(ctx), o); err != nil {
			log.Error("Failed to record signature step", zap.String("step", step), zap.Error(err))
			return err
		}
		log.Info("Signature step recorded", zap.String("step", step))
		return nil
	}

	sig := o.Signature()
	if !sig.Step.Reached(order.StepBlobUploaded) {
		rendered, err := s.render(ctx, o, integration.DocumentContract, StepRenderContract)
		if err != nil {
			return nil, s.clientError(o, err)
		}
		var blobID string
		err = s.call(ctx, integration.SystemSignature, StepUploadContract, func(ctx context.Context) error {
			var err error
			blobID, err = s.signature.UploadBlob(ctx, rendered.Data)
			return err
		})
		if err != nil {
			return nil, s.clientError(o, err)
		}
		if err := record(StepUploadContract, func() error { return o.RecordBlobUploaded(blobID, s.now()) }); err != nil {
			return nil, err
		}
	} else {
		log.Debug("Resuming signature handshake", zap.String("last_step", string(sig.Step)))
	}

	if !o.Signature().Step.Reached(order.StepDocumentCreated) {
		meta := integration.DocumentMetadata{
			Title:      contractTitle + " " + o.Number(),
			Number:     o.Number(),
			Date:       s.now(),
			ExternalID: o.ID.String(),
		}
		blobID := o.Signature().BlobID
		var documentID string
		err = s.call(ctx, integration.SystemSignature, StepCreateDocument, func(ctx context.Context) error {
			var err error
			documentID, err = s.signature.CreateDocument(ctx, meta, blobID)
			return err
		})
		if err != nil {
			return nil, s.clientError(o, err)
		}
		if err := record(StepCreateDocument, func() error { return o.RecordDocumentCreated(documentID, s.now()) }); err != nil {
			return nil, err
		}
	}

	documentID := o.Signature().DocumentID
	if !o.Signature().Step.Reached(order.StepRouteCreated) {
		route := integration.Route{
			SignerID:            s.settings.SignerID,
			CounterpartyID:      counterparty,
			CounterpartyContact: billing.DirectorName,
		}
		err = s.call(ctx, integration.SystemSignature, StepCreateRoute, func(ctx context.Context) error {
			return s.signature.CreateRoute(ctx, documentID, route)
		})
		if err != nil {
			return nil, s.clientError(o, err)
		}
		if err := record(StepCreateRoute, func() error { return o.RecordRouteCreated(s.now()) }); err != nil {
			return nil, err
		}
	}

	var content *integration.ContentToSign
	err = s.call(ctx, integration.SystemSignature, StepRequestContent, func(ctx context.Context) error {
		var err error
		content, err = s.signature.RequestContentToSign(ctx, documentID, counterparty)
		return err
	})
	if err != nil {
		return nil, s.clientError(o, err)
	}
	// The ticket must be durable before the client can use it.
	err = record(StepRequestContent, func() error {
		return o.RecordTicketIssued(content.DownloadLink, content.IdempotencyTicket, s.now())
	})
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = s.call(ctx, integration.SystemSignature, StepDownloadContent, func(ctx context.Context) error {
		var err error
		raw, err = s.signature.DownloadContent(ctx, content.DownloadLink)
		return err
	})
	if err != nil {
		return nil, s.clientError(o, err)
	}

	return &ContentToSignResponse{
		OrderID:           o.ID,
		DocumentID:        documentID,
		IdempotencyTicket: content.IdempotencyTicket,
		Content:           base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// SubmitSignature attaches the client's signature to the provider document
// and fires sign. The document id and ticket are checked against the
// recorded handshake before any network call.
func (s *Service) SubmitSignature(ctx context.Context, userID, orderID uuid.UUID, req SubmitSignatureRequest) (_ *OrderResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order.sign", telemetry.AttrOrderID.String(orderID.String()))
	defer telemetry.End(span, &err)

	o, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.ValidateSignatureSubmission(req.DocumentID, req.IdempotencyTicket, req.Signature); err != nil {
		return nil, err
	}
	billing := o.Billing()
	if billing == nil {
		return nil, order.ErrMissingBilling
	}

	var blobID string
	err = s.call(ctx, integration.SystemSignature, StepUploadSignature, func(ctx context.Context) error {
		var err error
		blobID, err = s.signature.UploadSignature(ctx, req.Signature)
		return err
	})
	if err != nil {
		return nil, s.clientError(o, err)
	}

	save := integration.SaveSignatureRequest{
		DocumentID:        req.DocumentID,
		SignerID:          billing.TaxID,
		BlobID:            blobID,
		IdempotencyTicket: req.IdempotencyTicket,
	}
	// A stale or reused ticket comes back as a 4xx and is not retried.
	err = s.call(ctx, integration.SystemSignature, StepSaveSignature, func(ctx context.Context) error {
		return s.signature.SaveSignature(ctx, save)
	})
	if err != nil {
		return nil, s.clientError(o, err)
	}

	// The provider now holds the signature, so sign is reapplied on the
	// latest state when a ticket reissue or the provider callback bumped
	// the version in between.
	commitCtx := detached(ctx)
	attempt := 0
	err = retryOnConflict(func() error {
		if attempt > 0 {
			current, err := s.orders.FindByID(commitCtx, o.ID)
			if err != nil {
				return err
			}
			o = current
		}
		attempt++
		if o.Status().IsAtLeast(order.StatusPendingPayment) {
			return nil
		}
		if err := o.CompleteSignature(s.now()); err != nil {
			return err
		}
		return s.commit(commitCtx, o)
	})
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}
