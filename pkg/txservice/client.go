// Package txservice is the HTTP client for the vault transaction service. One
// client is scoped to a single network and shares the process-wide API
// credential. The service owns hash computation and persistence; this client
// only lists pending work, submits approvals, and fetches vault metadata.
package txservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/vaultsentry/vaultsentry/types"
)

const (
	defaultTimeout = 30 * time.Second

	// maxErrorBodyBytes caps how much of an error response is carried into
	// the returned error.
	maxErrorBodyBytes = 512
)

// Client talks to the transaction service for one network.
type Client struct {
	lggr       logger.Logger
	baseURL    *url.URL
	httpClient *http.Client
	apiKey     string
	chainID    uint64
	// Self rate limit ahead of the service's shared per-credential limit.
	rate *rate.Limiter
}

// Option is a functional option for Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets the minimum interval between requests from this client.
func WithRateLimit(interval time.Duration) Option {
	return func(c *Client) {
		c.rate = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// NewClient builds a transaction-service client for one network. apiKey may
// be empty for services that do not require one.
func NewClient(lggr logger.Logger, serviceURL, apiKey string, chainID uint64, opts ...Option) (*Client, error) {
	u, err := url.ParseRequestURI(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction service URL %q: %w", serviceURL, err)
	}

	c := &Client{
		lggr:       lggr,
		baseURL:    u,
		apiKey:     apiKey,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: defaultTimeout},
		rate:       rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ChainID returns the network this client is scoped to.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// ListPendingTransactions returns the vault's not-yet-executed transactions in
// the order the service reports them.
func (c *Client) ListPendingTransactions(ctx context.Context, vault common.Address) ([]types.PendingTransaction, error) {
	var page pagedResponse[wireTransaction]
	path := fmt.Sprintf("api/v1/safes/%s/multisig-transactions/?executed=false", vault.Hex())
	if err := c.get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("listing pending transactions: %w", err)
	}

	pending := make([]types.PendingTransaction, 0, len(page.Results))
	for _, wt := range page.Results {
		tx, err := wt.toPendingTransaction(c.chainID)
		if err != nil {
			c.lggr.Warnw("skipping undecodable pending transaction",
				"chainID", c.chainID, "hash", wt.SafeTxHash, "error", err)
			continue
		}
		pending = append(pending, tx)
	}
	return pending, nil
}

// ListPendingMessages returns the vault's off-chain messages. The service does
// not report a required-approval count here; callers substitute their own.
func (c *Client) ListPendingMessages(ctx context.Context, vault common.Address) ([]types.PendingMessage, error) {
	var page pagedResponse[wireMessage]
	path := fmt.Sprintf("api/v1/safes/%s/messages/", vault.Hex())
	if err := c.get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("listing pending messages: %w", err)
	}

	pending := make([]types.PendingMessage, 0, len(page.Results))
	for _, wm := range page.Results {
		pending = append(pending, wm.toPendingMessage(c.chainID))
	}
	return pending, nil
}

// SubmitTransactionApproval posts the operator's signature for a pending
// transaction hash. A non-2xx response is an error.
func (c *Client) SubmitTransactionApproval(ctx context.Context, hash common.Hash, signature hexutil.Bytes) error {
	path := fmt.Sprintf("api/v1/multisig-transactions/%s/confirmations/", hash.Hex())
	if err := c.post(ctx, path, confirmationRequest{Signature: signature.String()}); err != nil {
		return fmt.Errorf("submitting transaction approval for %s: %w", hash.Hex(), err)
	}
	return nil
}

// SubmitMessageApproval posts the operator's signature for a pending message
// hash.
func (c *Client) SubmitMessageApproval(ctx context.Context, hash common.Hash, signature hexutil.Bytes) error {
	path := fmt.Sprintf("api/v1/messages/%s/signatures/", hash.Hex())
	if err := c.post(ctx, path, confirmationRequest{Signature: signature.String()}); err != nil {
		return fmt.Errorf("submitting message approval for %s: %w", hash.Hex(), err)
	}
	return nil
}

// FetchVaultInfo returns the vault metadata the service holds for this
// network.
func (c *Client) FetchVaultInfo(ctx context.Context, vault common.Address) (*types.VaultInfo, error) {
	var wi wireVaultInfo
	path := fmt.Sprintf("api/v1/safes/%s/", vault.Hex())
	if err := c.get(ctx, path, &wi); err != nil {
		return nil, fmt.Errorf("fetching vault info: %w", err)
	}
	return wi.toVaultInfo(), nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.rate.Wait(ctx); err != nil {
		return err
	}

	requestURL, err := c.baseURL.Parse(path)
	if err != nil {
		return fmt.Errorf("building request URL: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("transaction service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
