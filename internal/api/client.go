// Package api is the HTTP client of the remote finance API.
package api

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
	"strings"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
)

// Ensure interface conformance
var (
	_ ledger.Backend = (*Client)(nil)
	_ ledger.Ledger  = (*session)(nil)
)

const maxBody = 4 << 20

type Client struct {
	base   string
	http   *http.Client
	logger *log.Logger
}

// New builds a client for baseURL, e.g. "https://finance.example.com/api".
func New(baseURL string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("API base URL must be http or https, got %q", baseURL)
	}
	return &Client{
		base:   u.String(),
		http:   &http.Client{Timeout: timeout},
		logger: log.OrDiscard(logger).WithComponent(log.ComponentAPI),
	}, nil
}

// errorBody is the shape of every non-success answer.
type errorBody struct {
	Error string `json:"error"`
}

type call struct {
	method   string
	path     string
	query    url.Values
	token    string
	body     any
	fallback string
}

// endpoint joins base and an already escaped path.
func (c *Client) endpoint(path string, q url.Values) string {
	if len(q) == 0 {
		return c.base + path
	}
	return c.base + path + "?" + q.Encode()
}

// do sends req and decodes a 2xx body into out. Non-2xx answers become
// *ledger.Error carrying the server's message, or fallback when it sent none.
func (c *Client) do(ctx context.Context, req call, out any) error {
	var payload io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", req.path, err)
		}
		payload = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s response: %w", req.path, err)
	}
	c.logger.DebugContext(ctx, "API call",
		log.FieldMethod, req.method,
		log.FieldEndpoint, req.path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := strings.TrimSpace(eb.Error)
		if msg == "" {
			msg = req.fallback
		}
		return &ledger.Error{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.path, err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) (core.AuthResult, error) {
	var res core.AuthResult
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     map[string]string{"email": email, "password": password},
		fallback: "Login failed",
	}, &res)
	return res, err
}

func (c *Client) Register(ctx context.Context, name, email, password string) (core.AuthResult, error) {
	var res core.AuthResult
	err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     map[string]string{"name": name, "email": email, "password": password},
		fallback: "Register failed",
	}, &res)
	return res, err
}

// ForToken returns a ledger that sends token as bearer on every call.
func (c *Client) ForToken(token string) ledger.Ledger {
	return &session{client: c, token: token}
}

type session struct {
	client *Client
	token  string
}

func (s *session) get(ctx context.Context, path string, q url.Values, fallback string, out any) error {
	return s.client.do(ctx, call{method: http.MethodGet, path: path, query: q, token: s.token, fallback: fallback}, out)
}

func (s *session) send(ctx context.Context, method, path string, body any, fallback string, out any) error {
	return s.client.do(ctx, call{method: method, path: path, token: s.token, body: body, fallback: fallback}, out)
}

func (s *session) Me(ctx context.Context) (core.User, error) {
	var res struct {
		User core.User `json:"user"`
	}
	err := s.get(ctx, "/auth/me", nil, "Not authenticated", &res)
	return res.User, err
}

func (s *session) Constants(ctx context.Context) (core.Constants, error) {
	var res core.Constants
	err := s.get(ctx, "/transaction/constants", nil, "Failed to load constants", &res)
	return res, err
}

func (s *session) AddTransaction(ctx context.Context, tx core.NewTransaction) (core.Transaction, error) {
	var res core.Transaction
	err := s.send(ctx, http.MethodPost, "/transaction/add", tx, "Failed to add", &res)
	return res, err
}

func (s *session) report(ctx context.Context, path string, q url.Values) (core.Report, error) {
	res := core.EmptyReport()
	if err := s.get(ctx, path, q, "Failed to load", &res); err != nil {
		return core.EmptyReport(), err
	}
	if res.List == nil {
		res.List = []core.Transaction{}
	}
	return res, nil
}

func (s *session) Monthly(ctx context.Context, year, month int) (core.Report, error) {
	return s.report(ctx, "/transaction/monthly", url.Values{
		"year":  {strconv.Itoa(year)},
		"month": {strconv.Itoa(month)},
	})
}

func (s *session) Weekly(ctx context.Context, year, week int) (core.Report, error) {
	return s.report(ctx, "/transaction/weekly", url.Values{
		"year": {strconv.Itoa(year)},
		"week": {strconv.Itoa(week)},
	})
}

func (s *session) Yearly(ctx context.Context, year int) (core.Report, error) {
	return s.report(ctx, "/transaction/yearly", url.Values{"year": {strconv.Itoa(year)}})
}

func (s *session) Filter(ctx context.Context, q url.Values) (core.Report, error) {
	return s.report(ctx, "/transaction/filter", q)
}

func (s *session) CategorySummary(ctx context.Context, q url.Values) ([]core.CategoryTotal, error) {
	res := []core.CategoryTotal{}
	err := s.get(ctx, "/transaction/category-summary", q, "Failed to load", &res)
	return res, err
}

func (s *session) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	res := []core.Transaction{}
	err := s.get(ctx, "/transaction/list", nil, "Failed to load", &res)
	return res, err
}

// CanEdit reports false for any non-success answer except 401, which still
// ends the session.
func (s *session) CanEdit(ctx context.Context, id string) (bool, error) {
	var res struct {
		CanEdit bool `json:"canEdit"`
	}
	err := s.get(ctx, "/transaction/can-edit/"+url.PathEscape(id), nil, "Failed to load", &res)
	if err != nil {
		var le *ledger.Error
		if errors.As(err, &le) && !errors.Is(err, ledger.ErrUnauthorized) {
			return false, nil
		}
		return false, err
	}
	return res.CanEdit, nil
}

func (s *session) EditTransaction(ctx context.Context, id string, edit core.TransactionEdit) (core.Transaction, error) {
	var res core.Transaction
	err := s.send(ctx, http.MethodPut, "/transaction/edit/"+url.PathEscape(id), edit, "Failed to edit", &res)
	return res, err
}

func (s *session) ListAccounts(ctx context.Context) ([]core.Account, error) {
	res := []core.Account{}
	err := s.get(ctx, "/account/list", nil, "Failed to load", &res)
	return res, err
}

func (s *session) CreateAccount(ctx context.Context, name string) (core.Account, error) {
	var res core.Account
	err := s.send(ctx, http.MethodPost, "/account/create", map[string]string{"accountName": name}, "Failed to create", &res)
	return res, err
}

// Transfer only relies on the message of the result; the rest of its shape
// is server-defined and decoded best effort.
func (s *session) Transfer(ctx context.Context, req core.TransferRequest) (core.TransferResult, error) {
	var raw json.RawMessage
	if err := s.send(ctx, http.MethodPost, "/account/transfer", req, "Transfer failed", &raw); err != nil {
		return core.TransferResult{}, err
	}
	var res core.TransferResult
	if err := json.Unmarshal(raw, &res); err != nil {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &msg)
		res = core.TransferResult{Message: msg.Message}
	}
	return res, nil
}
