// Package report groups price results by market and renders the shopping
// report.
package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Sternrassler/market-list/pkg/pricing"
	"github.com/samber/lo"
)

// Groups maps a market name to the results whose lowest price is there.
type Groups map[string][]pricing.PriceResult

// Group partitions results by market. Order within a market follows the
// order of results.
func Group(results []pricing.PriceResult) Groups {
	return lo.GroupBy(results, func(r pricing.PriceResult) string {
		return r.Market
	})
}

// Markets returns the market names of groups in ascending byte order.
func Markets(groups Groups) []string {
	markets := lo.Keys(groups)
	sort.Strings(markets)
	return markets
}

// Format renders groups as text: per market, a header line, one
// "<name> - <price> (<quantity>)" line per item and a blank line.
// Markets are sorted; an empty Groups renders as "".
func Format(groups Groups) string {
	var b strings.Builder
	for _, market := range Markets(groups) {
		b.WriteString(market)
		b.WriteByte('\n')
		for _, r := range groups[market] {
			b.WriteString(Line(r))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Line renders a single item line.
func Line(r pricing.PriceResult) string {
	return r.ItemName + " - " + r.LowestPrice.String() + " (" + strconv.Itoa(r.Quantity) + ")"
}
