package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const accountHeader = "Provider-Account"

// Client is an HTTP client for the payment provider's REST API. The calls are
// consumed as opaque remote operations; only the fields this platform reads
// are decoded.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, path, accountID string, form url.Values) ([]byte, error) {
	endpoint := c.baseURL + path

	var body io.Reader
	if method != http.MethodGet && form != nil {
		body = strings.NewReader(form.Encode())
	} else if form != nil {
		endpoint += "?" + form.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if accountID != "" {
		req.Header.Set(accountHeader, accountID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider API error %d: %s", resp.StatusCode, string(data))
	}

	return data, nil
}

// ListEventsOptions filters the provider's event listing.
type ListEventsOptions struct {
	AccountID    string
	Types        []string
	CreatedSince time.Time
	PageSize     int
}

type eventList struct {
	Data    []json.RawMessage `json:"data"`
	HasMore bool              `json:"has_more"`
}

// ListEvents returns all events matching the options, following pagination
// until the listing is exhausted.
func (c *Client) ListEvents(ctx context.Context, opts ListEventsOptions) ([]*Event, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	var events []*Event
	startingAfter := ""

	for {
		form := url.Values{}
		for _, t := range opts.Types {
			form.Add("types[]", t)
		}
		if !opts.CreatedSince.IsZero() {
			form.Set("created[gte]", strconv.FormatInt(opts.CreatedSince.Unix(), 10))
		}
		form.Set("limit", strconv.Itoa(pageSize))
		if startingAfter != "" {
			form.Set("starting_after", startingAfter)
		}

		data, err := c.doRequest(ctx, http.MethodGet, "/v1/events", opts.AccountID, form)
		if err != nil {
			return nil, err
		}

		var page eventList
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("unmarshal event list: %w", err)
		}

		for _, raw := range page.Data {
			ev, err := decodeEvent(raw)
			if err != nil {
				return nil, fmt.Errorf("unmarshal event: %w", err)
			}
			events = append(events, ev)
		}

		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		startingAfter = events[len(events)-1].ID
	}

	return events, nil
}

// CheckoutSession is the subset of the provider's checkout session object this
// platform consumes.
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Mode          string `json:"mode"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
}

// CheckoutSessionParams describes a checkout session to create on a connected
// account. The order id is carried in the session metadata so webhook events
// can be correlated back to the originating account.
type CheckoutSessionParams struct {
	AccountID  string
	PriceID    string
	Mode       string
	OrderID    string
	SuccessURL string
	CancelURL  string
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", params.Mode)
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.OrderID != "" {
		form.Set("metadata[orderId]", params.OrderID)
		form.Set("client_reference_id", params.OrderID)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", params.AccountID, form)
	if err != nil {
		return nil, err
	}

	var session CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	return &session, nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, sessionID, accountID string) (*CheckoutSession, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, accountID, nil)
	if err != nil {
		return nil, err
	}

	var session CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	return &session, nil
}

// Account is the subset of the provider's connected account object consumed
// during provisioning.
type Account struct {
	ID string `json:"id"`
}

func (c *Client) CreateAccount(ctx context.Context, email string) (*Account, error) {
	form := url.Values{}
	form.Set("contact_email", email)
	form.Set("display_name", email)

	data, err := c.doRequest(ctx, http.MethodPost, "/v1/accounts", "", form)
	if err != nil {
		return nil, err
	}

	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &account, nil
}
