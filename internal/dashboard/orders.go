package dashboard

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mmeshcher/quickdeliver/internal/model"
)

// Sort задаёт порядок списка заказов.
type Sort string

const (
	SortNewest     Sort = "newest"
	SortOldest     Sort = "oldest"
	SortAmountDesc Sort = "amount_desc"
	SortAmountAsc  Sort = "amount_asc"
)

// ParseSort разбирает порядок сортировки; пустая строка означает SortNewest.
func ParseSort(s string) (Sort, error) {
	switch v := Sort(s); v {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortAmountDesc, SortAmountAsc:
		return v, nil
	case "amount":
		return SortAmountDesc, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// OrderFilter задаёт условия отбора заказов. Пустое поле не ограничивает выборку.
type OrderFilter struct {
	Status     model.OrderStatus
	Restaurant string
	Sort       Sort
}

// FilterOrders отбирает и сортирует заказы, не меняя исходный срез.
func FilterOrders(orders []model.Order, f OrderFilter) []model.Order {
	result := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Restaurant != "" && o.Restaurant != f.Restaurant {
			continue
		}
		result = append(result, o)
	}

	switch f.Sort {
	case SortOldest:
		slices.SortStableFunc(result, func(a, b model.Order) int { return a.CreatedAt.Compare(b.CreatedAt) })
	case SortAmountDesc:
		slices.SortStableFunc(result, func(a, b model.Order) int { return cmp.Compare(b.Total, a.Total) })
	case SortAmountAsc:
		slices.SortStableFunc(result, func(a, b model.Order) int { return cmp.Compare(a.Total, b.Total) })
	default:
		slices.SortStableFunc(result, func(a, b model.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
	return result
}
