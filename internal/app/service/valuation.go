package service

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"brokerage_tracker/internal/domain/entity"
	"brokerage_tracker/internal/pkg/utils"
)

// ValuePosition derives the metrics of one position from the price table.
// Malformed numbers are clamped to 0 and reported in Warnings; an unknown
// price values the position at 0 and keeps its cost data.
func ValuePosition(p entity.Position, prices entity.PriceTable) entity.PositionValuation {
	v := entity.PositionValuation{Position: p}

	quantity := clampFinite(&v, "quantity", p.Quantity)
	costBasis := clampFinite(&v, "costBasis", p.CostBasis)
	price := lookupPrice(&v, p.Symbol, prices)

	v.Price = price
	v.MarketValue = utils.Round2(quantity * price)

	rawAverageCost := 0.0
	if quantity > 0 {
		rawAverageCost = costBasis / quantity
	}
	v.AverageCost = utils.Round4(rawAverageCost)
	v.GainLoss = utils.Round2((price - rawAverageCost) * quantity)

	if costBasis > 0 {
		v.GainLossPercent = (price*quantity - costBasis) / costBasis * 100
	}
	return v
}

// ValuePortfolio sums value and cost over the positions exactly and rounds
// each total once.
func ValuePortfolio(positions []entity.Position, prices entity.PriceTable) entity.PortfolioValuation {
	var value, cost utils.DecimalSum
	for _, p := range positions {
		v := ValuePosition(p, prices)
		value.Add(sanitize(p.Quantity) * v.Price)
		cost.Add(sanitize(p.CostBasis))
	}
	return summarize(value, cost, len(positions))
}

// ValuePositions values every position and the portfolio in one pass.
func ValuePositions(positions []entity.Position, prices entity.PriceTable) ([]entity.PositionValuation, entity.PortfolioValuation) {
	out := make([]entity.PositionValuation, 0, len(positions))
	var value, cost utils.DecimalSum
	for _, p := range positions {
		v := ValuePosition(p, prices)
		out = append(out, v)
		value.Add(sanitize(p.Quantity) * v.Price)
		cost.Add(sanitize(p.CostBasis))
	}
	return out, summarize(value, cost, len(positions))
}

// Allocation splits the total market value by symbol, largest first.
func Allocation(valuations []entity.PositionValuation) []entity.AllocationSlice {
	bySymbol := make(map[string]*utils.DecimalSum)
	var order []string
	var total utils.DecimalSum
	for _, v := range valuations {
		if v.MarketValue <= 0 {
			continue
		}
		sym, ok := entity.NormalizeSymbol(v.Position.Symbol)
		if !ok {
			continue
		}
		key := sym.String()
		sum, exists := bySymbol[key]
		if !exists {
			sum = &utils.DecimalSum{}
			bySymbol[key] = sum
			order = append(order, key)
		}
		sum.Add(v.MarketValue)
		total.Add(v.MarketValue)
	}

	out := make([]entity.AllocationSlice, 0, len(order))
	if total.Decimal().IsZero() {
		return out
	}
	hundred := decimal.NewFromInt(100)
	for _, key := range order {
		sum := bySymbol[key]
		weight := sum.Decimal().Div(total.Decimal()).Mul(hundred)
		out = append(out, entity.AllocationSlice{
			Symbol:        key,
			Value:         sum.Rounded(2),
			WeightPercent: weight.Round(2).InexactFloat64(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func summarize(value, cost utils.DecimalSum, count int) entity.PortfolioValuation {
	gain := value.Decimal().Sub(cost.Decimal())
	out := entity.PortfolioValuation{
		TotalValue:    value.Rounded(2),
		TotalCost:     cost.Rounded(2),
		TotalGainLoss: gain.Round(2).InexactFloat64(),
		PositionCount: count,
	}
	if cost.Decimal().IsPositive() {
		out.TotalGainLossPercent = gain.Div(cost.Decimal()).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return out
}

func lookupPrice(v *entity.PositionValuation, raw string, prices entity.PriceTable) float64 {
	sym, ok := entity.NormalizeSymbol(raw)
	if !ok {
		return 0
	}
	price, ok := prices.Lookup(sym)
	if !ok {
		return 0
	}
	if !entity.IsValidPrice(price) {
		v.Warnings = append(v.Warnings, entity.ValuationWarning{Field: "price", Value: price, Note: "clamped to 0"})
		return 0
	}
	v.PriceKnown = true
	return price
}

func clampFinite(v *entity.PositionValuation, field string, x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		v.Warnings = append(v.Warnings, entity.ValuationWarning{Field: field, Value: x, Note: "not a finite number, clamped to 0"})
		return 0
	}
	return x
}

func sanitize(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
