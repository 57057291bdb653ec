// Package dashboard собирает сводные показатели личного кабинета из снимка данных сессии.
package dashboard

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mmeshcher/quickdeliver/internal/model"
)

const (
	recentActivityCap = 5
	latestOrdersCount = 3
	favoritesCount    = 3
)

// Summary содержит показатели главной страницы кабинета.
type Summary struct {
	TotalOrders    int               `json:"total_orders"`
	TotalSpent     float64           `json:"total_spent"`
	AverageOrder   float64           `json:"average_order_value"`
	RecentActivity int               `json:"recent_activity"`
	LatestOrders   []model.Order     `json:"latest_orders"`
	Favorites      []RestaurantCount `json:"favorite_restaurants"`
	Plan           model.Plan        `json:"plan"`
}

// RestaurantCount хранит число заказов в ресторане.
type RestaurantCount struct {
	Restaurant string `json:"restaurant"`
	Orders     int    `json:"orders"`
}

// Summarize считает показатели по заказам, упорядоченным от новых к старым.
func Summarize(view model.ViewModel) Summary {
	orders := view.Orders

	s := Summary{
		TotalOrders:  len(orders),
		LatestOrders: []model.Order{},
		Favorites:    []RestaurantCount{},
		Plan:         model.PlanFor(view.Profile.Subscription),
	}

	counts := map[string]int{}
	for _, o := range orders {
		s.TotalSpent += o.Total
		counts[o.Restaurant]++

		switch o.Status {
		case model.OrderStatusDelivered, model.OrderStatusInTransit, model.OrderStatusPreparing:
			s.RecentActivity++
		}
	}
	if s.TotalOrders > 0 {
		s.AverageOrder = s.TotalSpent / float64(s.TotalOrders)
	}
	s.RecentActivity = min(s.RecentActivity, recentActivityCap)
	s.LatestOrders = append(s.LatestOrders, orders[:min(len(orders), latestOrdersCount)]...)

	for name, n := range counts {
		s.Favorites = append(s.Favorites, RestaurantCount{Restaurant: name, Orders: n})
	}
	slices.SortFunc(s.Favorites, func(a, b RestaurantCount) int {
		if c := cmp.Compare(b.Orders, a.Orders); c != 0 {
			return c
		}
		return cmp.Compare(a.Restaurant, b.Restaurant)
	})
	s.Favorites = s.Favorites[:min(len(s.Favorites), favoritesCount)]

	return s
}

// Restaurants возвращает уникальные рестораны из заказов в алфавитном порядке.
func Restaurants(orders []model.Order) []string {
	names := make([]string, 0, len(orders))
	for _, o := range orders {
		names = append(names, o.Restaurant)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// BillView дополняет счёт подписью статуса для отображения.
type BillView struct {
	model.Bill
	Label   string `json:"label"`
	Display string `json:"amount_display"`
}

// BillLabel возвращает подпись статуса счёта.
// Нулевой счёт бесплатного тарифа всегда подписывается как «No Charge»
// независимо от сохранённого статуса.
func BillLabel(b model.Bill) string {
	if b.Amount == 0 || b.Status == model.BillStatusNoCharge {
		return string(model.BillStatusNoCharge)
	}
	return string(b.Status)
}

// Bills готовит счета к отображению.
func Bills(bills []model.Bill) []BillView {
	views := make([]BillView, 0, len(bills))
	for _, b := range bills {
		views = append(views, BillView{
			Bill:    b,
			Label:   BillLabel(b),
			Display: fmt.Sprintf("₹%.0f", b.Amount),
		})
	}
	return views
}
