package engine

import (
	"math"
	"sort"

	"upbit-backtester/internal/model"
)

const tradingDaysPerYear = 252

// ComputeMetrics derives the summary metrics of a finished run. Volatility
// annualizes step returns with a fixed sqrt(252) regardless of the actual
// candle interval; that matches the system this replaces and is a known
// limitation, not a bug to fix silently.
func ComputeMetrics(equity []model.EquityPoint, trades []model.Trade, initialCapital, finalValue float64) model.PerformanceMetrics {
	totalReturn := finalValue/initialCapital - 1

	years := 1.0
	if len(equity) > 1 {
		days := equity[len(equity)-1].Time.Sub(equity[0].Time).Hours() / 24
		years = days / 365.25
	}
	annualized := totalReturn
	if years > 0 {
		annualized = math.Pow(1+totalReturn, 1/years) - 1
	}

	volatility := 0.0
	if len(equity) > 1 {
		returns := make([]float64, 0, len(equity)-1)
		for i := 1; i < len(equity); i++ {
			returns = append(returns, equity[i].Value/equity[i-1].Value-1)
		}
		volatility = stddev(returns) * math.Sqrt(tradingDaysPerYear)
	}

	sharpe := 0.0
	if volatility > 0 {
		sharpe = annualized / volatility
	}

	winRate, profitFactor, totalTrades := tradeMetrics(trades)

	return model.PerformanceMetrics{
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		Volatility:       volatility,
		SharpeRatio:      sharpe,
		MaxDrawdown:      MaxDrawdown(equity),
		WinRate:          winRate,
		ProfitFactor:     model.JSONFloat(profitFactor),
		TotalTrades:      totalTrades,
	}
}

// MaxDrawdown is the largest peak-to-trough fractional decline of the
// equity curve, reported as a negative number.
func MaxDrawdown(equity []model.EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}
	maxDD := 0.0
	peak := equity[0].Value
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if dd := (peak - p.Value) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return -maxDD
}

// tradeMetrics pairs BUY[i] with SELL[i] by occurrence order. That is exact
// for the all-in/all-out machine (trades strictly alternate) but would need
// revisiting if a strategy ever scaled in or out.
func tradeMetrics(trades []model.Trade) (winRate, profitFactor float64, totalTrades int) {
	totalTrades = len(trades)
	if totalTrades < 2 {
		return 0, 0, totalTrades
	}

	buys, sells := splitTrades(trades)
	pairs := len(buys)
	if len(sells) < pairs {
		pairs = len(sells)
	}
	if pairs == 0 {
		return 0, 0, totalTrades
	}

	wins := 0
	var gains, losses float64
	for i := 0; i < pairs; i++ {
		profit := sells[i].Quantity*sells[i].Price - buys[i].Quantity*buys[i].Price
		if profit > 0 {
			wins++
			gains += profit
		} else if profit < 0 {
			losses += -profit
		}
	}

	winRate = float64(wins) / float64(pairs)
	if losses > 0 {
		profitFactor = gains / losses
	} else {
		profitFactor = math.Inf(1)
	}
	return winRate, profitFactor, totalTrades
}

// MonthlyReturns groups equity points by calendar month; each month's
// return is lastValue/firstValue - 1.
func MonthlyReturns(equity []model.EquityPoint) map[string]float64 {
	out := make(map[string]float64)
	if len(equity) < 2 {
		return out
	}
	type span struct{ first, last float64 }
	months := make(map[string]*span)
	for _, p := range equity {
		key := p.Time.Format("2006-01")
		if s, ok := months[key]; ok {
			s.last = p.Value
		} else {
			months[key] = &span{first: p.Value, last: p.Value}
		}
	}
	for key, s := range months {
		if s.first > 0 {
			out[key] = s.last/s.first - 1
		}
	}
	return out
}

// DrawdownPeriods scans the equity curve for completed peak-to-recovery
// declines and returns the five largest, most severe first. A decline that
// has not recovered by series end is not reported.
func DrawdownPeriods(equity []model.EquityPoint) []model.DrawdownPeriod {
	if len(equity) < 2 {
		return []model.DrawdownPeriod{}
	}

	periods := make([]model.DrawdownPeriod, 0)
	peak := equity[0]
	trough := equity[0]
	inDrawdown := false

	for _, p := range equity[1:] {
		if p.Value > peak.Value {
			if inDrawdown {
				periods = append(periods, model.DrawdownPeriod{
					PeakDate:     peak.Time,
					TroughDate:   trough.Time,
					RecoveryDate: p.Time,
					Drawdown:     -(peak.Value - trough.Value) / peak.Value,
				})
				inDrawdown = false
			}
			peak = p
			trough = p
			continue
		}
		inDrawdown = true
		if p.Value < trough.Value {
			trough = p
		}
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Drawdown < periods[j].Drawdown
	})
	if len(periods) > 5 {
		periods = periods[:5]
	}
	return periods
}

// Summarize splits the run outcome into realized profit (closed buy/sell
// pairs net of commission) and unrealized profit (everything else,
// including any still-open position marked to market).
func Summarize(initialCapital float64, res SimulationResult) model.PortfolioSummary {
	assetValue := res.FinalAsset * res.FinalPrice
	totalValue := res.FinalCash + assetValue
	absoluteProfit := totalValue - initialCapital

	status := "CASH"
	switch {
	case res.FinalAsset > 0 && res.FinalCash > 0:
		status = "MIXED"
	case res.FinalAsset > 0:
		status = "HOLDING_ASSET"
	}

	realized := 0.0
	buys, sells := splitTrades(res.Trades)
	pairs := len(buys)
	if len(sells) < pairs {
		pairs = len(sells)
	}
	for i := 0; i < pairs; i++ {
		profit := (sells[i].Price - buys[i].Price) * buys[i].Quantity
		profit -= buys[i].Commission + sells[i].Commission
		realized += profit
	}
	unrealized := absoluteProfit - realized

	summary := model.PortfolioSummary{
		InitialCapital:     initialCapital,
		FinalCashBalance:   res.FinalCash,
		FinalAssetQuantity: res.FinalAsset,
		FinalAssetPrice:    res.FinalPrice,
		FinalAssetValue:    assetValue,
		FinalTotalValue:    totalValue,
		AbsoluteProfit:     absoluteProfit,
		PositionStatus:     status,
		RealizedProfit:     realized,
		UnrealizedProfit:   unrealized,
	}
	if initialCapital > 0 {
		summary.RealizedReturn = realized / initialCapital
		summary.UnrealizedReturn = unrealized / initialCapital
	}
	return summary
}

// EnhanceTrades annotates each trade with its post-trade portfolio value
// and, for sells, the profit and return of the completed pair.
func EnhanceTrades(trades []model.Trade) []model.Trade {
	out := make([]model.Trade, len(trades))
	for i, t := range trades {
		t.PortfolioValue = t.CashBalance + t.AssetBalance*t.Price
		if t.Action == model.ActionSell && i > 0 && trades[i-1].Action == model.ActionBuy {
			buy := trades[i-1]
			profit := (t.Price-buy.Price)*buy.Quantity - (buy.Commission + t.Commission)
			t.TradeProfit = profit
			if cost := buy.Price * buy.Quantity; cost > 0 {
				t.TradeReturn = profit / cost
			}
		}
		out[i] = t
	}
	return out
}

func splitTrades(trades []model.Trade) (buys, sells []model.Trade) {
	for _, t := range trades {
		switch t.Action {
		case model.ActionBuy:
			buys = append(buys, t)
		case model.ActionSell:
			sells = append(sells, t)
		}
	}
	return buys, sells
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
