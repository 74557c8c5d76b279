// Package universe holds the fixed registry of index constituents grouped by
// sector, plus the market-index symbols tracked alongside them.
package universe

import (
	"fmt"

	"github.com/seenimoa/marketmap/pkg/models"
	"github.com/seenimoa/marketmap/pkg/utils"
)

// Entry is a ticker in registry form with its display name.
type Entry struct {
	Symbol string
	Name   string
}

// Sector is an ordered group of constituents.
type Sector struct {
	Name    string
	Tickers []Entry
}

// Index is a tracked market-index symbol. Indices are reported separately
// from the sector tree.
type Index struct {
	Symbol string
	Name   string
}

// Registry is an immutable sector → ticker mapping. Declaration order is
// preserved everywhere it is exposed.
type Registry struct {
	sectors []Sector
	indices []Index
	bySym   map[string]models.Ticker // keyed by provider symbol
}

// New builds a registry, rejecting empty sectors and duplicate symbols.
func New(sectors []Sector, indices []Index) (*Registry, error) {
	r := &Registry{bySym: make(map[string]models.Ticker)}
	for _, s := range sectors {
		if len(s.Tickers) == 0 {
			return nil, fmt.Errorf("universe: sector %q has no tickers", s.Name)
		}
		cp := Sector{Name: s.Name, Tickers: append([]Entry(nil), s.Tickers...)}
		for _, e := range cp.Tickers {
			key := utils.ToProviderSymbol(e.Symbol)
			if _, dup := r.bySym[key]; dup {
				return nil, fmt.Errorf("universe: duplicate symbol %q", e.Symbol)
			}
			r.bySym[key] = models.Ticker{Symbol: e.Symbol, Name: e.Name, Sector: s.Name}
		}
		r.sectors = append(r.sectors, cp)
	}
	for _, idx := range indices {
		key := utils.ToProviderSymbol(idx.Symbol)
		if _, dup := r.bySym[key]; dup {
			return nil, fmt.Errorf("universe: index %q collides with a constituent", idx.Symbol)
		}
		r.indices = append(r.indices, idx)
	}
	return r, nil
}

// Default returns the built-in S&P 500 sample universe.
func Default() *Registry {
	r, err := New(defaultSectors, defaultIndices)
	if err != nil {
		panic(err)
	}
	return r
}

// Sectors returns the sectors in declaration order.
func (r *Registry) Sectors() []Sector {
	out := make([]Sector, len(r.sectors))
	for i, s := range r.sectors {
		out[i] = Sector{Name: s.Name, Tickers: append([]Entry(nil), s.Tickers...)}
	}
	return out
}

// Indices returns the tracked index symbols.
func (r *Registry) Indices() []Index {
	return append([]Index(nil), r.indices...)
}

// Tickers flattens the sector tree in declaration order.
func (r *Registry) Tickers() []models.Ticker {
	out := make([]models.Ticker, 0, len(r.bySym))
	for _, s := range r.sectors {
		for _, e := range s.Tickers {
			out = append(out, models.Ticker{Symbol: e.Symbol, Name: e.Name, Sector: s.Name})
		}
	}
	return out
}

// ProviderSymbols lists every constituent in provider form followed by the
// index symbols. This is the refresh batch.
func (r *Registry) ProviderSymbols() []string {
	out := make([]string, 0, len(r.bySym)+len(r.indices))
	for _, s := range r.sectors {
		for _, e := range s.Tickers {
			out = append(out, utils.ToProviderSymbol(e.Symbol))
		}
	}
	for _, idx := range r.indices {
		out = append(out, utils.ToProviderSymbol(idx.Symbol))
	}
	return out
}

// Lookup finds a constituent by registry or provider symbol.
func (r *Registry) Lookup(symbol string) (models.Ticker, bool) {
	t, ok := r.bySym[utils.ToProviderSymbol(symbol)]
	return t, ok
}

// Len is the number of constituents, excluding indices.
func (r *Registry) Len() int { return len(r.bySym) }

var defaultIndices = []Index{
	{Symbol: "SPY", Name: "S&P 500"},
	{Symbol: "QQQ", Name: "NASDAQ 100"},
}

var defaultSectors = []Sector{
	{Name: "Technology", Tickers: []Entry{
		{"AAPL", "Apple Inc."},
		{"MSFT", "Microsoft Corp."},
		{"NVDA", "NVIDIA Corp."},
		{"AVGO", "Broadcom Inc."},
		{"ORCL", "Oracle Corp."},
		{"CRM", "Salesforce Inc."},
		{"CSCO", "Cisco Systems"},
		{"ACN", "Accenture"},
		{"IBM", "IBM Corp."},
		{"ADBE", "Adobe Inc."},
		{"AMD", "AMD Inc."},
		{"INTC", "Intel Corp."},
		{"QCOM", "Qualcomm"},
		{"TXN", "Texas Instruments"},
		{"INTU", "Intuit Inc."},
		{"AMAT", "Applied Materials"},
		{"NOW", "ServiceNow"},
		{"MU", "Micron Technology"},
		{"LRCX", "Lam Research"},
		{"ADI", "Analog Devices"},
	}},
	{Name: "Healthcare", Tickers: []Entry{
		{"UNH", "UnitedHealth Group"},
		{"JNJ", "Johnson & Johnson"},
		{"LLY", "Eli Lilly"},
		{"MRK", "Merck & Co."},
		{"ABBV", "AbbVie Inc."},
		{"PFE", "Pfizer Inc."},
		{"TMO", "Thermo Fisher"},
		{"ABT", "Abbott Labs"},
		{"DHR", "Danaher Corp."},
		{"BMY", "Bristol-Myers"},
		{"AMGN", "Amgen Inc."},
		{"MDT", "Medtronic"},
		{"GILD", "Gilead Sciences"},
		{"ISRG", "Intuitive Surgical"},
		{"VRTX", "Vertex Pharma"},
		{"CVS", "CVS Health"},
		{"CI", "Cigna Group"},
		{"ELV", "Elevance Health"},
		{"SYK", "Stryker Corp."},
		{"REGN", "Regeneron"},
	}},
	{Name: "Financials", Tickers: []Entry{
		{"BRK-B", "Berkshire Hathaway"},
		{"JPM", "JPMorgan Chase"},
		{"V", "Visa Inc."},
		{"MA", "Mastercard"},
		{"BAC", "Bank of America"},
		{"WFC", "Wells Fargo"},
		{"GS", "Goldman Sachs"},
		{"MS", "Morgan Stanley"},
		{"BLK", "BlackRock"},
		{"AXP", "American Express"},
		{"SPGI", "S&P Global"},
		{"C", "Citigroup"},
		{"SCHW", "Charles Schwab"},
		{"CB", "Chubb Ltd."},
		{"PGR", "Progressive Corp."},
		{"MMC", "Marsh McLennan"},
		{"ICE", "Intercontinental Ex"},
		{"USB", "U.S. Bancorp"},
		{"AON", "Aon plc"},
		{"CME", "CME Group"},
	}},
	{Name: "Consumer Discretionary", Tickers: []Entry{
		{"AMZN", "Amazon.com"},
		{"TSLA", "Tesla Inc."},
		{"HD", "Home Depot"},
		{"MCD", "McDonald's Corp."},
		{"NKE", "Nike Inc."},
		{"LOW", "Lowe's Cos."},
		{"SBUX", "Starbucks"},
		{"TJX", "TJX Companies"},
		{"BKNG", "Booking Holdings"},
		{"CMG", "Chipotle"},
		{"MAR", "Marriott Intl"},
		{"ORLY", "O'Reilly Auto"},
		{"GM", "General Motors"},
		{"F", "Ford Motor"},
		{"AZO", "AutoZone"},
		{"ROST", "Ross Stores"},
		{"DHI", "D.R. Horton"},
		{"LEN", "Lennar Corp."},
		{"YUM", "Yum! Brands"},
		{"EBAY", "eBay Inc."},
	}},
	{Name: "Communication Services", Tickers: []Entry{
		{"GOOGL", "Alphabet Inc."},
		{"META", "Meta Platforms"},
		{"NFLX", "Netflix Inc."},
		{"DIS", "Walt Disney"},
		{"CMCSA", "Comcast Corp."},
		{"VZ", "Verizon"},
		{"T", "AT&T Inc."},
		{"TMUS", "T-Mobile US"},
		{"CHTR", "Charter Comm."},
		{"WBD", "Warner Bros."},
		{"EA", "Electronic Arts"},
		{"TTWO", "Take-Two"},
		{"OMC", "Omnicom Group"},
		{"LYV", "Live Nation"},
		{"FOX", "Fox Corp."},
		{"NWSA", "News Corp."},
		{"MTCH", "Match Group"},
	}},
	{Name: "Consumer Staples", Tickers: []Entry{
		{"WMT", "Walmart Inc."},
		{"PG", "Procter & Gamble"},
		{"COST", "Costco"},
		{"KO", "Coca-Cola"},
		{"PEP", "PepsiCo"},
		{"PM", "Philip Morris"},
		{"MO", "Altria Group"},
		{"MDLZ", "Mondelez"},
		{"CL", "Colgate-Palmolive"},
		{"EL", "Estee Lauder"},
		{"KMB", "Kimberly-Clark"},
		{"GIS", "General Mills"},
		{"SYY", "Sysco Corp."},
		{"HSY", "Hershey Co."},
		{"KHC", "Kraft Heinz"},
		{"STZ", "Constellation Brands"},
		{"KR", "Kroger Co."},
		{"CAG", "Conagra Brands"},
	}},
	{Name: "Energy", Tickers: []Entry{
		{"XOM", "Exxon Mobil"},
		{"CVX", "Chevron Corp."},
		{"COP", "ConocoPhillips"},
		{"EOG", "EOG Resources"},
		{"SLB", "Schlumberger"},
		{"MPC", "Marathon Petroleum"},
		{"PSX", "Phillips 66"},
		{"VLO", "Valero Energy"},
		{"OXY", "Occidental Petro"},
		{"WMB", "Williams Cos."},
		{"KMI", "Kinder Morgan"},
		{"HAL", "Halliburton"},
		{"DVN", "Devon Energy"},
		{"BKR", "Baker Hughes"},
		{"FANG", "Diamondback Energy"},
		{"TRGP", "Targa Resources"},
		{"OKE", "ONEOK Inc."},
	}},
	{Name: "Industrials", Tickers: []Entry{
		{"GE", "GE Aerospace"},
		{"CAT", "Caterpillar"},
		{"UNP", "Union Pacific"},
		{"RTX", "RTX Corp."},
		{"HON", "Honeywell"},
		{"BA", "Boeing Co."},
		{"DE", "Deere & Co."},
		{"LMT", "Lockheed Martin"},
		{"UPS", "United Parcel"},
		{"ADP", "ADP Inc."},
		{"ETN", "Eaton Corp."},
		{"NOC", "Northrop Grumman"},
		{"GD", "General Dynamics"},
		{"WM", "Waste Management"},
		{"ITW", "Illinois Tool Works"},
		{"FDX", "FedEx Corp."},
		{"EMR", "Emerson Electric"},
		{"NSC", "Norfolk Southern"},
		{"CSX", "CSX Corp."},
		{"PH", "Parker Hannifin"},
	}},
	{Name: "Utilities", Tickers: []Entry{
		{"NEE", "NextEra Energy"},
		{"SO", "Southern Co."},
		{"DUK", "Duke Energy"},
		{"SRE", "Sempra Energy"},
		{"AEP", "American Electric"},
		{"D", "Dominion Energy"},
		{"EXC", "Exelon Corp."},
		{"XEL", "Xcel Energy"},
		{"PCG", "PG&E Corp."},
		{"ED", "Con Edison"},
		{"WEC", "WEC Energy"},
		{"EIX", "Edison Intl"},
		{"AWK", "American Water"},
		{"DTE", "DTE Energy"},
		{"PPL", "PPL Corp."},
		{"ES", "Eversource"},
		{"FE", "FirstEnergy"},
		{"AEE", "Ameren Corp."},
		{"CMS", "CMS Energy"},
		{"CNP", "CenterPoint"},
	}},
	{Name: "Real Estate", Tickers: []Entry{
		{"PLD", "Prologis"},
		{"AMT", "American Tower"},
		{"EQIX", "Equinix"},
		{"CCI", "Crown Castle"},
		{"PSA", "Public Storage"},
		{"SPG", "Simon Property"},
		{"WELL", "Welltower"},
		{"DLR", "Digital Realty"},
		{"O", "Realty Income"},
		{"VICI", "VICI Properties"},
		{"AVB", "AvalonBay"},
		{"EQR", "Equity Residential"},
		{"SBAC", "SBA Comm."},
		{"WY", "Weyerhaeuser"},
		{"ARE", "Alexandria RE"},
		{"EXR", "Extra Space"},
		{"MAA", "Mid-America Apt"},
		{"VTR", "Ventas Inc."},
		{"IRM", "Iron Mountain"},
		{"CBRE", "CBRE Group"},
	}},
	{Name: "Materials", Tickers: []Entry{
		{"LIN", "Linde plc"},
		{"APD", "Air Products"},
		{"SHW", "Sherwin-Williams"},
		{"FCX", "Freeport-McMoRan"},
		{"ECL", "Ecolab Inc."},
		{"NUE", "Nucor Corp."},
		{"NEM", "Newmont Corp."},
		{"DOW", "Dow Inc."},
		{"CTVA", "Corteva"},
		{"DD", "DuPont"},
		{"PPG", "PPG Industries"},
		{"VMC", "Vulcan Materials"},
		{"MLM", "Martin Marietta"},
		{"ALB", "Albemarle"},
		{"IFF", "IFF"},
		{"LYB", "LyondellBasell"},
		{"CF", "CF Industries"},
		{"MOS", "Mosaic Co."},
		{"CE", "Celanese"},
		{"BALL", "Ball Corp."},
	}},
}
