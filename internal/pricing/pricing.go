// Package pricing maps a party size to a price using a sparse table.
package pricing

import "sort"

// Row is one entry of a price table.
type Row struct {
	Players int     `json:"players" yaml:"players"`
	Price   float64 `json:"price" yaml:"price"`
}

// Table is a list of rows with unique Players values, sorted ascending.
// Lookups are by exact match only, never interpolated.
type Table []Row

// Result distinguishes a zero price from a missing row.
type Result struct {
	Price float64
	Found bool
}

// Normalize drops rows with non-positive players or negative price, keeps the
// last row for a duplicated player count and sorts the result by players.
func Normalize(rows []Row) Table {
	byPlayers := make(map[int]float64, len(rows))
	for _, r := range rows {
		if r.Players <= 0 || r.Price < 0 {
			continue
		}
		byPlayers[r.Players] = r.Price
	}

	out := make(Table, 0, len(byPlayers))
	for players, price := range byPlayers {
		out = append(out, Row{Players: players, Price: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Players < out[j].Players })
	return out
}

// Lookup returns the price for an exact players match.
func Lookup(t Table, players int) Result {
	for _, r := range t {
		if r.Players == players {
			return Result{Price: r.Price, Found: true}
		}
	}
	return Result{}
}

// PriceFor is Lookup with a missing row resolved to 0.
func PriceFor(t Table, players int) float64 {
	return Lookup(t, players).Price
}
