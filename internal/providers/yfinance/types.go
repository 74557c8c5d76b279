package yfinance

// --- Yahoo Finance API response types ---

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yfQuoteResponse wraps the v7 quote API response. Numeric fields are
// pointers because Yahoo omits whatever it has no value for.
type yfQuoteResponse struct {
	QuoteResponse struct {
		Result []yfQuoteResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"quoteResponse"`
}

type yfQuoteResult struct {
	Symbol      string `json:"symbol"`
	ShortName   string `json:"shortName"`
	LongName    string `json:"longName"`
	DisplayName string `json:"displayName"`
	QuoteType   string `json:"quoteType"`

	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	CurrentPrice       *float64 `json:"currentPrice"`
	PostMarketPrice    *float64 `json:"postMarketPrice"`
	PreMarketPrice     *float64 `json:"preMarketPrice"`

	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
	PreviousClose              *float64 `json:"previousClose"`
	ChartPreviousClose         *float64 `json:"chartPreviousClose"`

	RegularMarketOpen    *float64 `json:"regularMarketOpen"`
	Open                 *float64 `json:"open"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	DayHigh              *float64 `json:"dayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	DayLow               *float64 `json:"dayLow"`
	RegularMarketVolume  *int64   `json:"regularMarketVolume"`
	Volume               *int64   `json:"volume"`

	MarketCap         *float64 `json:"marketCap"`
	RegularMarketTime int64    `json:"regularMarketTime"`
}

// yfChartResponse wraps the v8 chart API response.
type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
	ExchangeTimezone   string   `json:"exchangeTimezoneName"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// yfSparkResponse wraps the v7 spark API, which returns a chart result per
// symbol for up to 20 symbols in one call.
type yfSparkResponse struct {
	Spark struct {
		Result []yfSparkResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"spark"`
}

type yfSparkResult struct {
	Symbol   string          `json:"symbol"`
	Response []yfChartResult `json:"response"`
}
