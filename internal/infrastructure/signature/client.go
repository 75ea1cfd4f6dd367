// Package signature is the HTTP client for the e-signature provider.
//
// Every call carries the bearer token. Non-2xx responses come back as
// *integration.Error classified by status; transport failures and
// timeouts are Unavailable.
package signature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	blobsPath           = "/blobs"
	documentsPath       = "/documents"
	routesPath          = "/documents/%s/routes"
	contentRequestsPath = "/documents/%s/content-requests"
	signaturesPath      = "/signatures"
	documentSignsPath   = "/documents/%s/signatures"

	defaultTimeout = 30 * time.Second
	maxContentSize = 32 << 20
)

// Step names reported on integration errors.
const (
	StepUploadBlob      = "upload_blob"
	StepCreateDocument  = "create_document"
	StepCreateRoute     = "create_route"
	StepRequestContent  = "request_content"
	StepDownloadContent = "download_content"
	StepUploadSignature = "upload_signature"
	StepSaveSignature   = "save_signature"
)

// Client implements integration.SignatureProvider over HTTP
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a provider client from configuration
func NewClient(cfg config.SignatureConfig, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("signature: base_url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("signature: invalid base_url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("signature"),
	}, nil
}

type idResponse struct {
	ID string `json:"id"`
}

type createDocumentRequest struct {
	Title      string `json:"title"`
	Number     string `json:"number"`
	Date       string `json:"date"`
	ExternalID string `json:"external_id"`
	BlobID     string `json:"blob_id"`
}

type createRouteRequest struct {
	SignerID            string `json:"signer_id"`
	CounterpartyID      string `json:"counterparty_id"`
	CounterpartyContact string `json:"counterparty_contact,omitempty"`
}

type contentRequest struct {
	SignerID string `json:"signer_id"`
}

type contentResponse struct {
	DownloadLink      string `json:"download_link"`
	IdempotencyTicket string `json:"idempotency_ticket"`
}

type saveSignatureRequest struct {
	SignerID          string `json:"signer_id"`
	BlobID            string `json:"blob_id"`
	IdempotencyTicket string `json:"idempotency_ticket"`
}

// UploadBlob stores the contract file and returns its blob id
func (c *Client) UploadBlob(ctx context.Context, data []byte) (string, error) {
	return c.uploadBinary(ctx, StepUploadBlob, blobsPath, data)
}

// UploadSignature stores a detached signature and returns its blob id
func (c *Client) UploadSignature(ctx context.Context, signature []byte) (string, error) {
	return c.uploadBinary(ctx, StepUploadSignature, signaturesPath, signature)
}

func (c *Client) uploadBinary(ctx context.Context, step, path string, data []byte) (string, error) {
	var out idResponse
	if err := c.do(ctx, step, http.MethodPost, c.endpoint(path), bytes.NewReader(data), "application/octet-stream", &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", integration.Rejected(integration.SystemSignature, step, "response has no id")
	}
	return out.ID, nil
}

// CreateDocument registers an outbound document for an uploaded blob
func (c *Client) CreateDocument(ctx context.Context, meta integration.DocumentMetadata, blobID string) (string, error) {
	body := createDocumentRequest{
		Title:      meta.Title,
		Number:     meta.Number,
		Date:       meta.Date.Format("2006-01-02"),
		ExternalID: meta.ExternalID,
		BlobID:     blobID,
	}
	var out idResponse
	if err := c.doJSON(ctx, StepCreateDocument, http.MethodPost, documentsPath, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", integration.Rejected(integration.SystemSignature, StepCreateDocument, "response has no document id")
	}
	return out.ID, nil
}

// CreateRoute sends the document from the company signer to the counterparty
func (c *Client) CreateRoute(ctx context.Context, documentID string, route integration.Route) error {
	body := createRouteRequest{
		SignerID:            route.SignerID,
		CounterpartyID:      route.CounterpartyID,
		CounterpartyContact: route.CounterpartyContact,
	}
	return c.doJSON(ctx, StepCreateRoute, http.MethodPost, fmt.Sprintf(routesPath, documentID), body, nil)
}

// RequestContentToSign returns the download link and the idempotency ticket
// that must accompany the signature for this document.
func (c *Client) RequestContentToSign(ctx context.Context, documentID, signerID string) (*integration.ContentToSign, error) {
	var out contentResponse
	path := fmt.Sprintf(contentRequestsPath, documentID)
	if err := c.doJSON(ctx, StepRequestContent, http.MethodPost, path, contentRequest{SignerID: signerID}, &out); err != nil {
		return nil, err
	}
	if out.DownloadLink == "" || out.IdempotencyTicket == "" {
		return nil, integration.Rejected(integration.SystemSignature, StepRequestContent, "response is missing the download link or ticket")
	}
	return &integration.ContentToSign{DownloadLink: out.DownloadLink, IdempotencyTicket: out.IdempotencyTicket}, nil
}

// DownloadContent fetches the bytes to be signed. Relative links resolve
// against the base url.
func (c *Client) DownloadContent(ctx context.Context, link string) ([]byte, error) {
	target, err := c.resolve(link)
	if err != nil || link == "" {
		return nil, integration.Rejected(integration.SystemSignature, StepDownloadContent, "invalid download link")
	}
	var raw rawBody
	if err := c.do(ctx, StepDownloadContent, http.MethodGet, target, nil, "", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SaveSignature attaches an uploaded signature, echoing the issued ticket
func (c *Client) SaveSignature(ctx context.Context, req integration.SaveSignatureRequest) error {
	body := saveSignatureRequest{
		SignerID:          req.SignerID,
		BlobID:            req.BlobID,
		IdempotencyTicket: req.IdempotencyTicket,
	}
	return c.doJSON(ctx, StepSaveSignature, http.MethodPost, fmt.Sprintf(documentSignsPath, req.DocumentID), body, nil)
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	return &u
}

func (c *Client) resolve(link string) (*url.URL, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() {
		return ref, nil
	}
	u := c.endpoint(ref.Path)
	u.RawQuery = ref.RawQuery
	return u, nil
}

func (c *Client) doJSON(ctx context.Context, step, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("signature: failed to marshal %s request: %w", step, err)
	}
	return c.do(ctx, step, method, c.endpoint(path), bytes.NewReader(payload), "application/json", out)
}

// rawBody receives a response body without JSON decoding.
type rawBody []byte

// do performs one request. out may be nil, *rawBody, or a JSON target.
func (c *Client) do(ctx context.Context, step, method string, target *url.URL, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("signature: failed to build %s request: %w", step, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Signature provider unreachable",
			zap.String("step", step),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return integration.FromTransport(integration.SystemSignature, step, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize))
	if err != nil {
		return integration.FromTransport(integration.SystemSignature, step, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ierr := integration.FromStatus(integration.SystemSignature, step, resp.StatusCode, data)
		c.logger.Warn("Signature provider returned an error",
			zap.String("step", step),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(ierr.Kind)),
			zap.String("upstream_body", ierr.Body),
		)
		return ierr
	}

	c.logger.Debug("Signature provider call succeeded",
		zap.String("step", step),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch dst := out.(type) {
	case nil:
		return nil
	case *rawBody:
		*dst = data
		return nil
	default:
		if err := json.Unmarshal(data, dst); err != nil {
			return integration.Rejected(integration.SystemSignature, step, "malformed response body")
		}
		return nil
	}
}

var _ integration.SignatureProvider = (*Client)(nil)
