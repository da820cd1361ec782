package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"okx-trader/internal/models"
)

// Property: for any sequence of fills applied to a fresh portfolio, the set
// of instruments with a non-zero net quantity exactly equals the keys of the
// position map, and cash equals starting cash plus the signed notionals
// minus all fees.
func TestProperty_NettingNeverLeavesZeroQuantityEntries(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	instIDs := []string{"BTC-USDT", "ETH-USDT", "DOGE-USDT"}
	sides := []models.Side{models.SideBuy, models.SideSell}

	fillGen := gopter.CombineGens(
		gen.IntRange(0, len(instIDs)-1),
		gen.IntRange(0, 1),
		gen.Float64Range(0.5, 500.0), // price
		gen.IntRange(1, 20),          // quantity in integer units keeps net sums exact
		gen.Float64Range(0, 2.0),     // fee
	).Map(func(vals []interface{}) models.Fill {
		return models.Fill{
			InstID:   instIDs[vals[0].(int)],
			TS:       1,
			Side:     sides[vals[1].(int)],
			Price:    vals[2].(float64),
			Quantity: float64(vals[3].(int)),
			Fee:      vals[4].(float64),
		}
	})

	properties.Property("position map keys equal instruments with non-zero net quantity", prop.ForAll(
		func(fills []models.Fill) bool {
			p := New(0)
			net := make(map[string]float64)
			cash := 0.0
			for _, f := range fills {
				p.ApplyFill(f)
				if f.Side == models.SideBuy {
					net[f.InstID] += f.Quantity
					cash -= f.Notional()
				} else {
					net[f.InstID] -= f.Quantity
					cash += f.Notional()
				}
				cash -= f.Fee
			}

			snap := p.Snapshot()
			for instID, qty := range net {
				pos, ok := snap.Position(instID)
				if qty == 0 {
					if ok {
						return false
					}
					continue
				}
				if !ok || pos.Quantity != qty {
					return false
				}
			}
			for instID := range snap.Positions {
				if net[instID] == 0 {
					return false
				}
			}
			return math.Abs(snap.Cash-cash) < 1e-6*(1+math.Abs(cash))
		},
		gen.SliceOf(fillGen),
	))

	properties.TestingRun(t)
}

// Property: while a position only ever grows in one direction, its average
// price stays within the [min, max] range of the fill prices that built it.
func TestProperty_SameDirectionAverageStaysWithinFillPriceRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	priceGen := gen.Float64Range(1.0, 1000.0)

	properties.Property("blended average bounded by fill prices", prop.ForAll(
		func(prices []float64) bool {
			if len(prices) == 0 {
				return true
			}
			p := New(0)
			lo, hi := prices[0], prices[0]
			for _, px := range prices {
				p.ApplyFill(models.Fill{
					InstID: "BTC-USDT", TS: 1, Side: models.SideBuy, Price: px, Quantity: 1,
				})
				lo = math.Min(lo, px)
				hi = math.Max(hi, px)
			}
			pos, ok := p.Snapshot().Position("BTC-USDT")
			if !ok {
				return false
			}
			return pos.AvgPrice >= lo-1e-9 && pos.AvgPrice <= hi+1e-9
		},
		gen.SliceOf(priceGen),
	))

	properties.TestingRun(t)
}
