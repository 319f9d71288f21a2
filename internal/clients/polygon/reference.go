package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

var _ domain.ReferenceSource = (*Client)(nil)

type cachedDetails struct {
	Symbol      string `msgpack:"symbol"`
	Name        string `msgpack:"name"`
	MarketCap   string `msgpack:"market_cap"`
	Employees   int64  `msgpack:"employees"`
	SICCode     string `msgpack:"sic_code"`
	Industry    string `msgpack:"industry"`
	Website     string `msgpack:"website"`
	LogoURL     string `msgpack:"logo_url"`
	Description string `msgpack:"description"`
}

type tickerDetailsResponse struct {
	Status  string `json:"status"`
	Results *struct {
		Ticker         string           `json:"ticker"`
		Name           string           `json:"name"`
		MarketCap      *decimal.Decimal `json:"market_cap"`
		TotalEmployees int64            `json:"total_employees"`
		SICCode        string           `json:"sic_code"`
		SICDescription string           `json:"sic_description"`
		HomepageURL    string           `json:"homepage_url"`
		Description    string           `json:"description"`
		Branding       struct {
			LogoURL string `json:"logo_url"`
		} `json:"branding"`
	} `json:"results"`
}

// ReferenceData returns the company behind symbol: name, market cap, head
// count, SIC classification, homepage and logo.
func (c *Client) ReferenceData(ctx context.Context, symbol string) (domain.TickerDetails, error) {
	cached, err := lookup(ctx, c, clientdata.TableTickerDetails, symbol, clientdata.TTLTickerDetails,
		func(ctx context.Context) (cachedDetails, error) {
			var resp tickerDetailsResponse
			if err := c.get(ctx, "/v3/reference/tickers/"+url.PathEscape(symbol), nil, &resp); err != nil {
				return cachedDetails{}, err
			}
			if resp.Results == nil {
				return cachedDetails{}, fmt.Errorf("%s: %w", symbol, domain.ErrSymbolNotFound)
			}
			r := resp.Results
			d := cachedDetails{
				Symbol:      r.Ticker,
				Name:        r.Name,
				Employees:   r.TotalEmployees,
				SICCode:     r.SICCode,
				Industry:    r.SICDescription,
				Website:     r.HomepageURL,
				LogoURL:     r.Branding.LogoURL,
				Description: r.Description,
			}
			if r.MarketCap != nil {
				d.MarketCap = r.MarketCap.String()
			}
			return d, nil
		})
	if err != nil {
		return domain.TickerDetails{}, err
	}

	details := domain.TickerDetails{
		Symbol:      cached.Symbol,
		Name:        cached.Name,
		Employees:   cached.Employees,
		Sector:      sicSector(cached.SICCode),
		Industry:    cached.Industry,
		Website:     cached.Website,
		LogoURL:     cached.LogoURL,
		Description: cached.Description,
	}
	if details.Symbol == "" {
		details.Symbol = symbol
	}
	if cached.MarketCap != "" {
		if details.MarketCap, err = parseDecimal(cached.MarketCap); err != nil {
			return domain.TickerDetails{}, err
		}
	}
	return details, nil
}

// sicDivisions maps the first two SIC digits to the division name. Each
// entry is the upper bound of its range.
var sicDivisions = []struct {
	upTo int
	name string
}{
	{9, "Agriculture, Forestry and Fishing"},
	{14, "Mining"},
	{17, "Construction"},
	{39, "Manufacturing"},
	{49, "Transportation and Public Utilities"},
	{51, "Wholesale Trade"},
	{59, "Retail Trade"},
	{67, "Finance, Insurance and Real Estate"},
	{89, "Services"},
	{90, ""},
	{99, "Public Administration"},
}

// sicSector returns the SIC division of code, or "" if code is not a SIC code
func sicSector(code string) string {
	if len(code) < 2 {
		return ""
	}
	major, err := strconv.Atoi(code[:2])
	if err != nil || major < 1 {
		return ""
	}
	for _, d := range sicDivisions {
		if major <= d.upTo {
			return d.name
		}
	}
	return ""
}
