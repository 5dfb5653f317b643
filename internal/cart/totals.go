package cart

import (
	"github.com/abhiruchieats/storefront-api/pkg/db/models"
	"github.com/shopspring/decimal"
)

func lineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Totals returns cartTotal (sum of line totals) and itemCount (sum of quantities).
func Totals(items []models.CartItem) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		total = total.Add(item.TotalPrice)
		count += item.Quantity
	}
	return total, count
}
