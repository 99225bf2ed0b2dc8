package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"StockSentinel/internal/model"

	"github.com/guregu/null/v5"
)

const defaultYahooBase = "https://query1.finance.yahoo.com"

// YahooProvider reads bars from the Yahoo Finance chart API. The API has no
// login, so its sessions are placeholders that keep the lifecycle uniform.
type YahooProvider struct {
	APIBase string
	Client  *http.Client
}

// NewYahooProvider creates a provider with optional proxy support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooProvider{
		APIBase: defaultYahooBase,
		Client:  &http.Client{Transport: transport},
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) Login(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SessionError{Provider: p.Name(), Err: err}
	}
	return yahooSession{p: p}, nil
}

// yahooSymbol maps exchange-prefixed codes to Yahoo tickers:
// sh.600000 becomes 600000.SS and sz.000001 becomes 000001.SZ.
func yahooSymbol(code string) string {
	prefix, num, ok := strings.Cut(code, ".")
	if !ok {
		return code
	}
	switch strings.ToLower(prefix) {
	case "sh":
		return num + ".SS"
	case "sz":
		return num + ".SZ"
	}
	return code
}

func yahooInterval(p model.Period) string {
	switch p {
	case model.Weekly:
		return "1wk"
	case model.Monthly:
		return "1mo"
	}
	return "1d"
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GmtOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooSession struct {
	p *YahooProvider
}

func (s yahooSession) Logout(context.Context) error { return nil }

func (s yahooSession) Query(ctx context.Context, q Query) (model.Series, error) {
	params := url.Values{}
	params.Set("interval", yahooInterval(q.Period))
	params.Set("includeAdjustedClose", "true")
	if q.StartDate != "" {
		start, err := time.Parse(model.DateLayout, q.StartDate)
		if err != nil {
			return model.Series{}, &QueryError{Instrument: q.Code, Err: err}
		}
		params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	} else {
		params.Set("period1", "0")
	}
	end := time.Now().UTC()
	if q.EndDate != "" {
		d, err := time.Parse(model.DateLayout, q.EndDate)
		if err != nil {
			return model.Series{}, &QueryError{Instrument: q.Code, Err: err}
		}
		end = d.AddDate(0, 0, 1)
	}
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))

	base := strings.TrimRight(s.p.APIBase, "/")
	if base == "" {
		base = defaultYahooBase
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", base, url.PathEscape(yahooSymbol(q.Code)), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Series{}, &QueryError{Instrument: q.Code, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.p.Client.Do(req)
	if err != nil {
		return model.Series{}, &QueryError{Instrument: q.Code, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Series{}, &QueryError{Instrument: q.Code, Err: fmt.Errorf("read body: %w", err)}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return model.Series{}, &QueryError{Instrument: q.Code, Code: strconv.Itoa(resp.StatusCode), Msg: string(body)}
		}
		return model.Series{}, &QueryError{Instrument: q.Code, Err: fmt.Errorf("decode: %w", err)}
	}
	if chart.Chart.Error != nil {
		return model.Series{}, &QueryError{Instrument: q.Code, Code: chart.Chart.Error.Code, Msg: chart.Chart.Error.Description}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return model.Series{Code: q.Code}, nil
	}

	bars, err := chartBars(q, chart)
	if err != nil {
		return model.Series{}, err
	}
	return model.Series{Code: q.Code, Bars: bars}, nil
}

// chartBars converts the first chart result. Rows with a null price are
// holidays and are dropped. Unless q asks for unadjusted prices, OHLC is
// scaled by adjclose/close.
func chartBars(q Query, chart yahooChart) ([]model.Bar, error) {
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &MalformedError{Field: "quote", Row: -1, Reason: "missing"}
	}
	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	for name, col := range map[string][]*float64{
		"open": quote.Open, "high": quote.High, "low": quote.Low, "close": quote.Close,
	} {
		if len(col) != n {
			return nil, &MalformedError{Field: name, Row: -1, Reason: fmt.Sprintf("has %d values for %d timestamps", len(col), n)}
		}
	}
	var adj []*float64
	if q.Adjust != model.AdjustNone && len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == n {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	offset := time.Duration(result.Meta.GmtOffset) * time.Second
	bars := make([]model.Bar, 0, n)
	for i, ts := range result.Timestamp {
		o, h, l, c := quote.Open[i], quote.High[i], quote.Low[i], quote.Close[i]
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		factor := 1.0
		if adj != nil && adj[i] != nil && *c != 0 {
			factor = *adj[i] / *c
		}
		local := time.Unix(ts, 0).UTC().Add(offset)
		bar := model.Bar{
			Date:  time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			Code:  q.Code,
			Open:  *o * factor,
			High:  *h * factor,
			Low:   *l * factor,
			Close: *c * factor,
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = null.FloatFrom(*quote.Volume[i])
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
