package session

import (
	"time"

	"github.com/mmeshcher/quickdeliver/internal/model"
)

// DemoUsername задаёт единственную учётная запись, доступная при недоступном хранилище.
const DemoUsername = "demo"

// sha256("password")
const demoPasswordHash = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"

func demoDate(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

func demoUser() model.User {
	return model.User{
		ID:           "demo",
		Username:     DemoUsername,
		Email:        "demo@quickdeliver.com",
		Name:         "Demo User",
		PasswordHash: demoPasswordHash,
		Subscription: model.TierStandard,
	}
}

func demoOrders() []model.Order {
	orders := []struct {
		number     string
		day        int
		restaurant string
		items      []string
		total      float64
	}{
		{"ORD-2024-156", 28, "Pizza Palace", []string{"Margherita Pizza", "Garlic Bread", "Pepsi"}, 545},
		{"ORD-2024-155", 26, "Burger Junction", []string{"Classic Burger", "French Fries", "Chocolate Milkshake"}, 425},
		{"ORD-2024-154", 24, "Spice Garden", []string{"Butter Chicken", "Garlic Naan", "Basmati Rice", "Lassi"}, 520},
		{"ORD-2024-153", 22, "Thai Express", []string{"Pad Thai", "Spring Rolls", "Thai Green Curry"}, 480},
		{"ORD-2024-152", 20, "Chinese Dragon", []string{"Chicken Fried Rice", "Veg Manchurian", "Hot & Sour Soup"}, 395},
		{"ORD-2024-151", 18, "South Indian Corner", []string{"Masala Dosa", "Sambar", "Coconut Chutney", "Filter Coffee"}, 285},
	}

	result := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, model.Order{
			UserID:     "demo",
			Number:     o.number,
			Restaurant: o.restaurant,
			Items:      o.items,
			Total:      o.total,
			Status:     model.OrderStatusDelivered,
			CreatedAt:  demoDate(time.December, o.day),
		})
	}
	return result
}

func demoBills() []model.Bill {
	bill := func(month time.Month, status model.BillStatus) model.Bill {
		return model.Bill{
			UserID:  "demo",
			Month:   month.String() + " 2024",
			Amount:  499,
			Status:  status,
			DueDate: demoDate(month, 25),
		}
	}

	return []model.Bill{
		bill(time.December, model.BillStatusPending),
		bill(time.November, model.BillStatusPaid),
		bill(time.October, model.BillStatusPaid),
		bill(time.September, model.BillStatusPaid),
	}
}

func demoView() *model.ViewModel {
	profile := demoUser()
	profile.PasswordHash = ""
	return &model.ViewModel{
		Profile: profile,
		Orders:  demoOrders(),
		Bills:   demoBills(),
	}
}
