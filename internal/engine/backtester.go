// Package engine runs strategy simulations over historical candles and
// derives performance reports from them.
package engine

import (
	"fmt"

	"upbit-backtester/internal/model"
	"upbit-backtester/internal/progress"
	"upbit-backtester/internal/strategy"
)

// Backtester drives one strategy over one candle series under the
// all-in/all-out single-position model: the portfolio is either entirely
// cash or entirely asset, and every transition converts the full balance.
type Backtester struct {
	strategy       strategy.Strategy
	initialCapital float64
	commissionRate float64

	cash   float64
	asset  float64
	trades []model.Trade
	equity []model.EquityPoint
}

// SimulationResult carries the raw outcome of one run; FinalValue marks any
// open position to market at the last close without force-closing it.
type SimulationResult struct {
	Trades      []model.Trade
	EquityCurve []model.EquityPoint
	FinalCash   float64
	FinalAsset  float64
	FinalPrice  float64
	FinalValue  float64
}

func NewBacktester(strat strategy.Strategy, initialCapital, commissionRate float64) *Backtester {
	return &Backtester{
		strategy:       strat,
		initialCapital: initialCapital,
		commissionRate: commissionRate,
		cash:           initialCapital,
		trades:         make([]model.Trade, 0),
		equity:         make([]model.EquityPoint, 0),
	}
}

// Run simulates the strategy over candles, one step per candle in ascending
// order, starting at the strategy's warmup index. The equity point of a
// step is recorded before any trade executes at that step.
func (b *Backtester) Run(candles []model.Candle, obs progress.Observer) SimulationResult {
	series := model.NewPriceSeries(candles)
	b.strategy.Prepare(series)

	for i := b.strategy.Warmup(); i < len(candles); i++ {
		price := series.Closes[i]
		ts := series.Times[i]

		b.equity = append(b.equity, model.EquityPoint{
			Time:  ts,
			Value: b.cash + b.asset*price,
			Price: price,
		})

		switch b.strategy.OnIndex(i, b.asset == 0) {
		case strategy.ActionBuy:
			if b.asset == 0 {
				b.buy(i, price, series, obs)
			}
		case strategy.ActionSell:
			if b.asset > 0 {
				b.sell(i, price, series, obs)
			}
		}
	}

	finalPrice := series.Closes[len(candles)-1]
	return SimulationResult{
		Trades:      b.trades,
		EquityCurve: b.equity,
		FinalCash:   b.cash,
		FinalAsset:  b.asset,
		FinalPrice:  finalPrice,
		FinalValue:  b.cash + b.asset*finalPrice,
	}
}

func (b *Backtester) buy(i int, price float64, series model.PriceSeries, obs progress.Observer) {
	commission := b.cash * b.commissionRate
	invested := b.cash - commission
	b.asset = invested / price
	b.cash = 0

	b.trades = append(b.trades, model.Trade{
		Time:         series.Times[i],
		Action:       model.ActionBuy,
		Price:        price,
		Quantity:     b.asset,
		Commission:   commission,
		CashBalance:  b.cash,
		AssetBalance: b.asset,
		Indicators:   b.strategy.Diagnostics(i),
	})
	progress.Emit(obs, "simulate", fmt.Sprintf("BUY %s @ %.2f", series.Times[i].Format("2006-01-02 15:04"), price))
}

func (b *Backtester) sell(i int, price float64, series model.PriceSeries, obs progress.Observer) {
	gross := b.asset * price
	commission := gross * b.commissionRate
	quantity := b.asset
	b.cash = gross - commission
	b.asset = 0

	b.trades = append(b.trades, model.Trade{
		Time:         series.Times[i],
		Action:       model.ActionSell,
		Price:        price,
		Quantity:     quantity,
		Commission:   commission,
		CashBalance:  b.cash,
		AssetBalance: 0,
		Indicators:   b.strategy.Diagnostics(i),
	})
	progress.Emit(obs, "simulate", fmt.Sprintf("SELL %s @ %.2f", series.Times[i].Format("2006-01-02 15:04"), price))
}
