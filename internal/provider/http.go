package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"StockSentinel/internal/model"

	"github.com/guregu/null/v5"
)

// HTTPProvider talks to a bar data gateway over a login/history/logout REST API.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPProvider creates a provider with optional proxy support.
func NewHTTPProvider(baseURL, apiKey, proxyURL string) *HTTPProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Transport: transport},
	}
}

func (p *HTTPProvider) Name() string { return "http" }

type loginResponse struct {
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
	Session   string `json:"session"`
}

type historyResponse struct {
	ErrorCode string     `json:"error_code"`
	ErrorMsg  string     `json:"error_msg"`
	Fields    []string   `json:"fields"`
	Rows      [][]string `json:"rows"`
}

func (p *HTTPProvider) Login(ctx context.Context) (Session, error) {
	var resp loginResponse
	if err := p.do(ctx, http.MethodPost, "/login", nil, "", &resp); err != nil {
		return nil, &SessionError{Provider: p.Name(), Err: err}
	}
	if resp.ErrorCode != "0" {
		return nil, &SessionError{Provider: p.Name(), Code: resp.ErrorCode, Msg: resp.ErrorMsg}
	}
	return &httpSession{p: p, token: resp.Session}, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, params url.Values, token string, out any) error {
	endpoint := p.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	if token != "" {
		req.Header.Set("X-Session", token)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d, body: %s", method, path, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type httpSession struct {
	p     *HTTPProvider
	token string
}

func (s *httpSession) Query(ctx context.Context, q Query) (model.Series, error) {
	params := url.Values{}
	params.Set("code", q.Code)
	params.Set("fields", strings.Join(q.Fields(), ","))
	params.Set("start_date", q.StartDate)
	params.Set("end_date", q.EndDate)
	params.Set("frequency", q.Period.Frequency())
	params.Set("adjustflag", string(q.Adjust))

	var resp historyResponse
	if err := s.p.do(ctx, http.MethodGet, "/history", params, s.token, &resp); err != nil {
		return model.Series{}, &QueryError{Instrument: q.Code, Err: err}
	}
	if resp.ErrorCode != "0" {
		return model.Series{}, &QueryError{Instrument: q.Code, Code: resp.ErrorCode, Msg: resp.ErrorMsg}
	}
	bars, err := parseRows(resp.Fields, resp.Rows)
	if err != nil {
		return model.Series{}, err
	}
	return model.Series{Code: q.Code, Bars: bars}, nil
}

func (s *httpSession) Logout(ctx context.Context) error {
	var resp loginResponse
	if err := s.p.do(ctx, http.MethodPost, "/logout", nil, s.token, &resp); err != nil {
		return &SessionError{Provider: s.p.Name(), Err: err}
	}
	if resp.ErrorCode != "" && resp.ErrorCode != "0" {
		return &SessionError{Provider: s.p.Name(), Code: resp.ErrorCode, Msg: resp.ErrorMsg}
	}
	return nil
}

var requiredFields = []string{"date", "open", "high", "low", "close"}

// parseRows maps string rows to bars by column name.
func parseRows(fields []string, rows [][]string) ([]model.Bar, error) {
	col := make(map[string]int, len(fields))
	for i, f := range fields {
		col[f] = i
	}
	for _, f := range requiredFields {
		if _, ok := col[f]; !ok && len(rows) > 0 {
			return nil, &MalformedError{Field: f, Row: -1, Reason: "missing from result columns"}
		}
	}

	bars := make([]model.Bar, 0, len(rows))
	for r, row := range rows {
		cell := func(name string) (string, bool) {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return "", false
			}
			return strings.TrimSpace(row[i]), true
		}
		required := func(name string) (float64, error) {
			s, ok := cell(name)
			if !ok || s == "" {
				return 0, &MalformedError{Field: name, Row: r, Reason: "is missing"}
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, &MalformedError{Field: name, Row: r, Reason: fmt.Sprintf("is not numeric: %q", s)}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, &MalformedError{Field: name, Row: r, Reason: "is not finite"}
			}
			return v, nil
		}
		optional := func(name string) (null.Float, error) {
			s, ok := cell(name)
			if !ok || s == "" {
				return null.Float{}, nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return null.Float{}, &MalformedError{Field: name, Row: r, Reason: fmt.Sprintf("is not numeric: %q", s)}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return null.Float{}, &MalformedError{Field: name, Row: r, Reason: "is not finite"}
			}
			return null.FloatFrom(v), nil
		}

		ds, _ := cell("date")
		date, err := time.Parse(model.DateLayout, ds)
		if err != nil {
			return nil, &MalformedError{Field: "date", Row: r, Reason: fmt.Sprintf("is not a date: %q", ds)}
		}
		b := model.Bar{Date: date}
		b.Code, _ = cell("code")
		for _, f := range []struct {
			name string
			dst  *float64
		}{{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close}} {
			if *f.dst, err = required(f.name); err != nil {
				return nil, err
			}
		}
		for _, f := range []struct {
			name string
			dst  *null.Float
		}{{"preclose", &b.PreClose}, {"volume", &b.Volume}, {"amount", &b.Amount}, {"turn", &b.Turn}, {"pctChg", &b.PctChg}} {
			if *f.dst, err = optional(f.name); err != nil {
				return nil, err
			}
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
