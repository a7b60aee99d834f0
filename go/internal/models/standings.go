package models

import "sort"

// Standings returns copies of the players ordered by balance, highest first.
// Ties are broken by name and then by ID so the order is stable across calls.
func Standings(players map[string]*Player) []Player {
	out := make([]Player, 0, len(players))
	for _, p := range players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
