package businesses

import (
	"strconv"
)

// UntypedGroup names the menu group of products without a product type.
const UntypedGroup = "Otros"

// GroupMenu groups items by product type name, keeping the order in which
// each type first appears.
func GroupMenu(items []MenuItem) []MenuGroup {
	index := map[string]int{}
	var out []MenuGroup
	for _, item := range items {
		key := item.TypeName
		if key == "" {
			key = UntypedGroup
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, MenuGroup{Type: key})
		}
		out[i].Items = append(out[i].Items, item)
	}
	return out
}

// PrizeKey renders the display key of a prize.
func PrizeKey(points int, name string) string {
	return strconv.Itoa(points) + " Pts | " + name
}

// GroupPrizes folds prize rows into one group per prize. Prizes without
// linked products carry an empty, non-nil product list.
func GroupPrizes(rows []PrizeRow) []PrizeGroup {
	index := map[int64]int{}
	var out []PrizeGroup
	for _, row := range rows {
		i, ok := index[row.PrizeID]
		if !ok {
			i = len(out)
			index[row.PrizeID] = i
			out = append(out, PrizeGroup{
				Key:      PrizeKey(row.Points, row.Name),
				Points:   row.Points,
				Name:     row.Name,
				Products: []string{},
			})
		}
		if row.ProductName != "" {
			out[i].Products = append(out[i].Products, row.ProductName)
		}
	}
	return out
}
