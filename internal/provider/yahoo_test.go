package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StockSentinel/internal/model"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"gmtoffset":28800},
  "timestamp":[1704159000,1704245400,1704331800],
  "indicators":{
    "quote":[{"open":[10,null,11],"high":[11,null,12],"low":[9,null,10],"close":[10,null,11.5],"volume":[100,null,200]}],
    "adjclose":[{"adjclose":[5,null,5.75]}]
  }}],"error":null}}`

func newYahooServer(t *testing.T, status int, body string) (*YahooProvider, *string) {
	t.Helper()
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path + "?" + r.URL.RawQuery
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	p := NewYahooProvider("")
	p.APIBase = srv.URL
	return p, &path
}

func TestYahooSymbol(t *testing.T) {
	tests := map[string]string{
		"sh.600000": "600000.SS",
		"sz.000001": "000001.SZ",
		"AAPL":      "AAPL",
		"hk.00700":  "hk.00700",
	}
	for in, want := range tests {
		if got := yahooSymbol(in); got != want {
			t.Errorf("yahooSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestYahoo_FetchBars(t *testing.T) {
	p, path := newYahooServer(t, http.StatusOK, chartBody)

	series, err := FetchBars(context.Background(), p, Query{
		Code: "sh.600000", StartDate: "2024-01-02", EndDate: "2024-01-04",
		Period: model.Daily, Adjust: model.AdjustNone,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(*path, "/v8/finance/chart/600000.SS") || !strings.Contains(*path, "interval=1d") {
		t.Errorf("request = %s", *path)
	}
	if series.Len() != 2 {
		t.Fatalf("expected null row dropped, got %d bars", series.Len())
	}
	if got := series.Bars[0].Date.Format(model.DateLayout); got != "2024-01-02" {
		t.Errorf("first date = %s", got)
	}
	if series.Bars[1].Close != 11.5 || series.Bars[1].Volume.Float64 != 200 {
		t.Errorf("unadjusted bar = %+v", series.Bars[1])
	}
}

func TestYahoo_Adjusted(t *testing.T) {
	p, _ := newYahooServer(t, http.StatusOK, chartBody)
	series, err := FetchBars(context.Background(), p, Query{
		Code: "sh.600000", StartDate: "2024-01-02", EndDate: "2024-01-04",
		Period: model.Daily, Adjust: model.AdjustForward,
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	b := series.Bars[0]
	if b.Open != 5 || b.High != 5.5 || b.Low != 4.5 || b.Close != 5 {
		t.Errorf("adjusted bar = %+v", b)
	}
}

func TestYahoo_Errors(t *testing.T) {
	ctx := context.Background()
	q := Query{Code: "sh.600000", StartDate: "2024-01-02", EndDate: "2024-01-04", Period: model.Weekly}

	p, _ := newYahooServer(t, http.StatusNotFound,
		`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	_, err := FetchBars(ctx, p, q)
	var qe *QueryError
	if !errors.As(err, &qe) || qe.Code != "Not Found" {
		t.Errorf("expected QueryError, got %v", err)
	}

	p, _ = newYahooServer(t, http.StatusOK, `{"chart":{"result":[{"timestamp":[]}],"error":null}}`)
	if _, err := FetchBars(ctx, p, q); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}

	p, _ = newYahooServer(t, http.StatusOK,
		`{"chart":{"result":[{"timestamp":[1,2],"indicators":{"quote":[{"open":[1],"high":[1,2],"low":[1,2],"close":[1,2]}]}}]}}`)
	_, err = FetchBars(ctx, p, q)
	var me *MalformedError
	if !errors.As(err, &me) || me.Field != "open" {
		t.Errorf("expected MalformedError on open, got %v", err)
	}

	p, _ = newYahooServer(t, http.StatusBadGateway, `<html>bad gateway</html>`)
	if _, err := FetchBars(ctx, p, q); !errors.As(err, &qe) || qe.Code != "502" {
		t.Errorf("expected QueryError with status, got %v", err)
	}
}
