package fx

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DefaultBaseURL is the TCMB kurlar endpoint.
const DefaultBaseURL = "https://www.tcmb.gov.tr/kurlar"

// FetchRecorder counts fetch outcomes for observability.
type FetchRecorder interface {
	ObserveTCMBFetch(ok bool)
}

// Client fetches and parses the TCMB daily rate feed. Concurrent requests
// for the same date collapse into a single upstream fetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	recorder   FetchRecorder
	group      singleflight.Group
	now        func() time.Time
}

// NewClient constructs a Client. A nil httpClient falls back to a client
// with a 15s timeout; baseURL defaults to the public TCMB endpoint.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// WithRecorder attaches a fetch outcome recorder.
func (c *Client) WithRecorder(r FetchRecorder) *Client {
	c.recorder = r
	return c
}

// RatesForDate resolves the table for the given calendar date. The feed is
// best-effort: network failures, non-2xx responses and parse failures all
// yield an empty table so callers can render "rate unavailable" without
// guarding against errors.
func (c *Client) RatesForDate(ctx context.Context, date time.Time) Table {
	table, err := c.Fetch(ctx, date)
	if err != nil {
		c.logger.Warn("tcmb fetch", slog.String("date", date.Format("2006-01-02")), slog.Any("error", err))
		return Table{}
	}
	return table
}

// Fetch is the error-carrying variant of RatesForDate. An empty table with a
// nil error means the feed answered but listed no currencies (holiday); an
// error means the feed could not be consulted.
func (c *Client) Fetch(ctx context.Context, date time.Time) (Table, error) {
	key := date.Format("20060102")
	result, err, _ := c.flight(ctx, key, date)
	if c.recorder != nil {
		c.recorder.ObserveTCMBFetch(err == nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) flight(ctx context.Context, key string, date time.Time) (Table, error, bool) {
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetchRemote(ctx, date)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-ch:
		table, _ := res.Val.(Table)
		return table, res.Err, res.Shared
	}
}

func (c *Client) fetchRemote(ctx context.Context, date time.Time) (Table, error) {
	url := c.urlFor(date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fx: build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fx: fetch %s: %w", url, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("fx: fetch %s: status %d", url, res.StatusCode)
	}

	table, err := ParseDocument(res.Body)
	if err != nil {
		return nil, fmt.Errorf("fx: parse %s: %w", url, err)
	}
	return table, nil
}

// urlFor picks today.xml for the current date and the archive path
// YYYYMM/DDMMYYYY.xml otherwise.
func (c *Client) urlFor(date time.Time) string {
	now := c.now()
	if date.Year() == now.Year() && date.Month() == now.Month() && date.Day() == now.Day() {
		return c.baseURL + "/today.xml"
	}
	return fmt.Sprintf("%s/%04d%02d/%02d%02d%04d.xml",
		c.baseURL, date.Year(), int(date.Month()), date.Day(), int(date.Month()), date.Year())
}

// The feed mixes two markup shapes over the years: attribute style
// (<Currency Kod="USD" ForexBuying="43.69"/>) and child-element style
// (<Currency CurrencyCode="USD"><ForexBuying>43,69</ForexBuying></Currency>).
// Both are accepted, attribute values win when both are present.
type tcmbDocument struct {
	Currencies []tcmbCurrency `xml:"Currency"`
}

type tcmbCurrency struct {
	KodAttr          string `xml:"Kod,attr"`
	CurrencyCodeAttr string `xml:"CurrencyCode,attr"`
	UnitAttr         string `xml:"Unit,attr"`
	UnitTag          string `xml:"Unit"`

	ForexBuyingAttr     string `xml:"ForexBuying,attr"`
	ForexBuyingTag      string `xml:"ForexBuying"`
	ForexSellingAttr    string `xml:"ForexSelling,attr"`
	ForexSellingTag     string `xml:"ForexSelling"`
	BanknoteBuyingAttr  string `xml:"BanknoteBuying,attr"`
	BanknoteBuyingTag   string `xml:"BanknoteBuying"`
	BanknoteSellingAttr string `xml:"BanknoteSelling,attr"`
	BanknoteSellingTag  string `xml:"BanknoteSelling"`
}

// ParseDocument decodes a TCMB rate document. The feed declares ISO-8859-9.
func ParseDocument(r io.Reader) (Table, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var doc tcmbDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}

	table := make(Table, len(doc.Currencies))
	for _, cur := range doc.Currencies {
		code := strings.TrimSpace(cur.KodAttr)
		if code == "" {
			code = strings.TrimSpace(cur.CurrencyCodeAttr)
		}
		if code == "" {
			continue
		}
		table[code] = RateSet{
			ForexBuying:     parseDecimal(coalesce(cur.ForexBuyingAttr, cur.ForexBuyingTag)),
			ForexSelling:    parseDecimal(coalesce(cur.ForexSellingAttr, cur.ForexSellingTag)),
			BanknoteBuying:  parseDecimal(coalesce(cur.BanknoteBuyingAttr, cur.BanknoteBuyingTag)),
			BanknoteSelling: parseDecimal(coalesce(cur.BanknoteSellingAttr, cur.BanknoteSellingTag)),
			Unit:            parseUnit(coalesce(cur.UnitAttr, cur.UnitTag)),
		}
	}
	return table, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "iso-8859-9", "latin5":
		return transform.NewReader(input, charmap.ISO8859_9.NewDecoder()), nil
	case "windows-1254":
		return transform.NewReader(input, charmap.Windows1254.NewDecoder()), nil
	case "", "utf-8":
		return input, nil
	}
	return nil, fmt.Errorf("fx: unsupported charset %q", charset)
}

// parseDecimal accepts Turkish comma decimals as well as dot decimals.
func parseDecimal(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseUnit(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
