package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one fixed-interval OHLCV bar. Timestamps are exchange-local
// (KST) civil time as delivered by Upbit. Immutable once fetched.
type Candle struct {
	Market    string    `json:"market"`
	Timestamp time.Time `json:"candle_date_time_kst"`
	Open      float64   `json:"opening_price"`
	High      float64   `json:"high_price"`
	Low       float64   `json:"low_price"`
	Close     float64   `json:"trade_price"`
	Volume    float64   `json:"candle_acc_trade_volume"`
}

// PriceSeries holds the per-field arrays of a candle sequence. Index i in
// every array refers to the same candle.
type PriceSeries struct {
	Times   []time.Time
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

func NewPriceSeries(candles []Candle) PriceSeries {
	s := PriceSeries{
		Times:   make([]time.Time, len(candles)),
		Opens:   make([]float64, len(candles)),
		Highs:   make([]float64, len(candles)),
		Lows:    make([]float64, len(candles)),
		Closes:  make([]float64, len(candles)),
		Volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Times[i] = c.Timestamp
		s.Opens[i] = c.Open
		s.Highs[i] = c.High
		s.Lows[i] = c.Low
		s.Closes[i] = c.Close
		s.Volumes[i] = c.Volume
	}
	return s
}

func (s PriceSeries) Len() int { return len(s.Closes) }

// Ticker is a current-price snapshot. Pass-through fields keep exchange
// precision via decimal.
type Ticker struct {
	Market            string          `json:"market"`
	TradePrice        decimal.Decimal `json:"trade_price"`
	OpeningPrice      decimal.Decimal `json:"opening_price"`
	HighPrice         decimal.Decimal `json:"high_price"`
	LowPrice          decimal.Decimal `json:"low_price"`
	PrevClosingPrice  decimal.Decimal `json:"prev_closing_price"`
	SignedChangeRate  decimal.Decimal `json:"signed_change_rate"`
	AccTradeVolume24H decimal.Decimal `json:"acc_trade_volume_24h"`
	AccTradePrice24H  decimal.Decimal `json:"acc_trade_price_24h"`
	TimestampMs       int64           `json:"timestamp"`
}

// OrderBookUnit is one bid/ask level of a depth snapshot.
type OrderBookUnit struct {
	AskPrice decimal.Decimal `json:"ask_price"`
	BidPrice decimal.Decimal `json:"bid_price"`
	AskSize  decimal.Decimal `json:"ask_size"`
	BidSize  decimal.Decimal `json:"bid_size"`
}

type OrderBook struct {
	Market         string          `json:"market"`
	TimestampMs    int64           `json:"timestamp"`
	TotalAskSize   decimal.Decimal `json:"total_ask_size"`
	TotalBidSize   decimal.Decimal `json:"total_bid_size"`
	OrderBookUnits []OrderBookUnit `json:"orderbook_units"`
}

// TradeTick is one executed trade from the public trade feed. AskBid is
// "ASK" for a taker sell and "BID" for a taker buy.
type TradeTick struct {
	Market       string          `json:"market"`
	TradeDateUTC string          `json:"trade_date_utc"`
	TradeTimeUTC string          `json:"trade_time_utc"`
	TimestampMs  int64           `json:"timestamp"`
	TradePrice   decimal.Decimal `json:"trade_price"`
	TradeVolume  decimal.Decimal `json:"trade_volume"`
	AskBid       string          `json:"ask_bid"`
	SequentialID int64           `json:"sequential_id"`
}

type Market struct {
	MarketCode  string `json:"market"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

// MarketSummary is a composed snapshot of the KRW markets: the majors, the
// busiest and the biggest movers over the last 24 hours.
type MarketSummary struct {
	TimestampMs    int64    `json:"timestamp"`
	MajorCoins     []Ticker `json:"major_coins"`
	TopVolume      []Ticker `json:"top_volume"`
	TopGainers     []Ticker `json:"top_gainers"`
	TopLosers      []Ticker `json:"top_losers"`
	KRWMarketCount int      `json:"krw_market_count"`
}
