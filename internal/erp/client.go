// Package erp talks to the remote ERP store, the system of record for
// purchase orders, goods-received notes and the supplier directory. The
// console only mirrors and drives that record; it holds no state of its own.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quayside-hq/quayside/internal/procurement"
)

// Client implements procurement.Store over the ERP REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	flight     singleflight.Group
}

var _ procurement.Store = (*Client)(nil)

// NewClient constructs a new client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks whether the remote store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("erp: store returned status %d", resp.StatusCode)
	}
	return nil
}

type ordersResponse struct {
	Orders []procurement.PurchaseOrder `json:"orders"`
	Count  int                         `json:"count"`
}

// ListOrders fetches one page of orders. Pagination is offset based and the
// returned count is exact.
func (c *Client) ListOrders(ctx context.Context, filter procurement.OrderFilter, page, pageSize int) ([]procurement.PurchaseOrder, int, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Account != "" {
		query.Set("account", filter.Account)
	}
	setPageQuery(query, page, pageSize)

	var payload ordersResponse
	if err := c.getJSON(ctx, "/orders", query, &payload); err != nil {
		return nil, 0, err
	}
	return payload.Orders, payload.Count, nil
}

// GetOrderDetail fetches the header, delivery fields and lines of one order.
func (c *Client) GetOrderDetail(ctx context.Context, poNumber string) (procurement.OrderDetail, error) {
	var detail procurement.OrderDetail
	if err := c.getJSON(ctx, "/orders/"+url.PathEscape(poNumber), nil, &detail); err != nil {
		return procurement.OrderDetail{}, err
	}
	return detail, nil
}

type grnsResponse struct {
	GRNs  []procurement.GoodsReceivedNote `json:"grns"`
	Count int                             `json:"count"`
}

// ListGRNs fetches one page of goods-received notes.
func (c *Client) ListGRNs(ctx context.Context, page, pageSize int) ([]procurement.GoodsReceivedNote, int, error) {
	query := url.Values{}
	setPageQuery(query, page, pageSize)

	var payload grnsResponse
	if err := c.getJSON(ctx, "/grns", query, &payload); err != nil {
		return nil, 0, err
	}
	return payload.GRNs, payload.Count, nil
}

type outstandingResponse struct {
	OutstandingLines []procurement.OrderLine `json:"outstanding_lines"`
}

// GetOutstanding fetches the lines of an order that still have quantity
// outstanding. The quantities are server-authoritative; the console never
// derives outstanding itself.
func (c *Client) GetOutstanding(ctx context.Context, poNumber string) ([]procurement.OrderLine, error) {
	var payload outstandingResponse
	if err := c.getJSON(ctx, "/orders/"+url.PathEscape(poNumber)+"/outstanding", nil, &payload); err != nil {
		return nil, err
	}
	return payload.OutstandingLines, nil
}

type suppliersResponse struct {
	Suppliers []procurement.Supplier `json:"suppliers"`
}

// SearchSuppliers queries the supplier directory.
func (c *Client) SearchSuppliers(ctx context.Context, term string) ([]procurement.Supplier, error) {
	query := url.Values{}
	query.Set("search", term)

	var payload suppliersResponse
	if err := c.getJSON(ctx, "/suppliers", query, &payload); err != nil {
		return nil, err
	}
	return payload.Suppliers, nil
}

type createOrderResponse struct {
	PONumber string `json:"po_number"`
}

// CreateOrder submits a new purchase order and returns its assigned number.
func (c *Client) CreateOrder(ctx context.Context, input procurement.CreateOrderInput) (string, error) {
	var payload createOrderResponse
	if err := c.postJSON(ctx, "/orders", input, input.IdempotencyKey, &payload); err != nil {
		return "", err
	}
	return payload.PONumber, nil
}

type createReceiptResponse struct {
	GRNNumber string `json:"grn_number"`
}

// CreateReceipt submits a goods-received note against one order and returns
// the assigned GRN number.
func (c *Client) CreateReceipt(ctx context.Context, poNumber string, input procurement.CreateReceiptInput) (string, error) {
	var payload createReceiptResponse
	path := "/orders/" + url.PathEscape(poNumber) + "/receive"
	if err := c.postJSON(ctx, path, input, input.IdempotencyKey, &payload); err != nil {
		return "", err
	}
	return payload.GRNNumber, nil
}

// getJSON performs a coalesced GET: concurrent identical requests share one
// upstream call.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	resultChan := c.flight.DoChan(target, func() (interface{}, error) {
		return c.fetch(ctx, target)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		body, ok := res.Val.([]byte)
		if !ok {
			return errors.New("erp: unexpected coalesced result type")
		}
		return json.Unmarshal(body, dest)
	}
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erp: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("erp: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, idempotencyKey string, dest any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("erp: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("erp: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, payload)
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(payload, dest)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

type problemPayload struct {
	Detail string `json:"detail"`
}

// decodeError maps store failures onto the procurement error taxonomy: 404
// becomes ErrNotFound, 409 a stale-quantity conflict, everything else a
// RemoteError carrying the server-supplied detail string.
func decodeError(status int, body []byte) error {
	var problem problemPayload
	_ = json.Unmarshal(body, &problem)
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("erp: %w", procurement.ErrNotFound)
	case http.StatusConflict:
		if problem.Detail != "" {
			return fmt.Errorf("%w: %s", procurement.ErrStaleQuantity, problem.Detail)
		}
		return procurement.ErrStaleQuantity
	default:
		return procurement.RemoteError{StatusCode: status, Detail: problem.Detail}
	}
}

func setPageQuery(query url.Values, page, pageSize int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	query.Set("limit", strconv.Itoa(pageSize))
	query.Set("offset", strconv.Itoa((page-1)*pageSize))
}
