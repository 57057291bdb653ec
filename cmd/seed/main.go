// Package main наполняет базу QuickDeliver демонстрационными пользователями,
// заказами и счетами.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mmeshcher/quickdeliver/internal/account"
	"github.com/mmeshcher/quickdeliver/internal/config"
	"github.com/mmeshcher/quickdeliver/internal/model"
	"github.com/mmeshcher/quickdeliver/internal/repository"
)

const samplePassword = "password123"

type sampleUser struct {
	username     string
	email        string
	name         string
	subscription model.Tier
}

var sampleUsers = []sampleUser{
	{"priya_sharma", "priya.sharma@gmail.com", "Priya Sharma", model.TierPremium},
	{"rahul_kumar", "rahul.kumar@yahoo.com", "Rahul Kumar", model.TierBasic},
	{"sneha", "sneha@hotmail.com", "Sneha", model.TierStandard},
	{"amit", "amit.singh@gmail.com", "Amit Singh", model.TierPremium},
	{"dharani", "dharani@gmail.com", "Dharani", model.TierBasic},
}

var restaurants = []string{
	"Pizza Palace", "Spice Garden", "Burger Junction", "Thai Express",
	"Chinese Dragon", "South Indian Corner", "Italian Bistro", "Mexican Fiesta",
	"BBQ Nation", "Sushi World", "Street Food Hub", "Continental Cafe",
	"Healthy Bites", "Dessert Paradise",
}

var menu = map[string][]string{
	"Pizza Palace":        {"Margherita Pizza", "Pepperoni Pizza", "Garlic Bread", "Pepsi"},
	"Spice Garden":        {"Butter Chicken", "Naan", "Basmati Rice", "Dal Makhani"},
	"Burger Junction":     {"Classic Burger", "Cheese Burger", "Fries", "Onion Rings", "Milkshake"},
	"Thai Express":        {"Pad Thai", "Spring Rolls", "Thai Tea", "Green Curry"},
	"Chinese Dragon":      {"Chicken Fried Rice", "Manchurian", "Hot & Sour Soup", "Noodles"},
	"South Indian Corner": {"Masala Dosa", "Sambar", "Coconut Chutney", "Filter Coffee"},
	"Italian Bistro":      {"Pasta Alfredo", "Caesar Salad", "Garlic Bread", "Tiramisu"},
	"Mexican Fiesta":      {"Chicken Burrito", "Nachos", "Guacamole", "Quesadilla"},
}

// Delivered встречается чаще остальных статусов.
var orderStatuses = []model.OrderStatus{
	model.OrderStatusDelivered, model.OrderStatusDelivered, model.OrderStatusDelivered,
	model.OrderStatusInTransit, model.OrderStatusPreparing, model.OrderStatusCancelled,
}

func main() {
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed for generated orders")

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// Переменные из .env не перекрывают уже заданные в окружении.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sugar.Warnw("load .env error", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI, logger.Named("repository"))
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repo.Migrate(ctx); err != nil {
		sugar.Fatalw("migration error", "error", err.Error())
	}

	existing, err := repo.CountOrders(ctx)
	if err != nil {
		sugar.Fatalw("count orders error", "error", err.Error())
	}

	s := &seeder{
		accounts:     account.NewRepository(repo, logger.Named("account")),
		rnd:          rand.New(rand.NewPCG(*seed, *seed)),
		now:          time.Now(),
		logger:       sugar,
		orderCounter: existing,
	}

	for _, u := range sampleUsers {
		if err := s.seedUser(ctx, u); err != nil {
			sugar.Fatalw("seed error", "username", u.username, "error", err.Error())
		}
	}
	sugar.Infow("database population completed", "password", samplePassword)
}

// sampleStore описывает операции хранилища, нужные для наполнения базы.
type sampleStore interface {
	Create(ctx context.Context, username, email, plaintext, name string) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateSubscription(ctx context.Context, userID string, tier model.Tier) bool
	PlaceOrder(ctx context.Context, userID string, o model.NewOrder, placedAt time.Time) bool
	IssueBill(ctx context.Context, userID string, b model.NewBill) bool
}

// Номер заказа может быть занят, если заказы добавлялись не только этой командой.
const orderNumberAttempts = 3

type seeder struct {
	accounts sampleStore
	rnd      *rand.Rand
	now      time.Time
	logger   *zap.SugaredLogger

	// orderCounter начинается с числа уже сохранённых заказов.
	orderCounter int
}

func (s *seeder) nextOrderNumber() string {
	s.orderCounter++
	return fmt.Sprintf("ORD-%d-%03d", s.now.Year(), s.orderCounter)
}

func (s *seeder) seedUser(ctx context.Context, u sampleUser) error {
	err := s.accounts.Create(ctx, u.username, u.email, samplePassword, u.name)
	if errors.Is(err, account.ErrAlreadyExists) {
		s.logger.Infow("user already exists, skipping", "username", u.username)
		return nil
	}
	if err != nil {
		return err
	}

	created, err := s.accounts.FindByUsername(ctx, u.username)
	if err != nil {
		return fmt.Errorf("load created user: %w", err)
	}
	if u.subscription != model.TierBasic && !s.accounts.UpdateSubscription(ctx, created.ID, u.subscription) {
		return fmt.Errorf("set subscription %s", u.subscription)
	}
	s.logger.Infow("added user", "username", u.username, "subscription", u.subscription)

	s.seedOrders(ctx, created.ID)
	s.seedBills(ctx, created.ID, u)
	return nil
}

func (s *seeder) seedOrders(ctx context.Context, userID string) {
	count := 3 + s.rnd.IntN(4)
	for range count {
		restaurant := restaurants[s.rnd.IntN(len(restaurants))]
		available, ok := menu[restaurant]
		if !ok {
			available = []string{"Item 1", "Item 2"}
		}

		picked := s.rnd.Perm(len(available))[:min(1+s.rnd.IntN(3), len(available))]
		items := make([]string, 0, len(picked))
		for _, i := range picked {
			items = append(items, available[i])
		}

		o := model.NewOrder{
			Restaurant: restaurant,
			Items:      items,
			Total:      float64(200 + s.rnd.IntN(800)),
			Status:     orderStatuses[s.rnd.IntN(len(orderStatuses))],
		}
		placedAt := s.now.AddDate(0, 0, -(1 + s.rnd.IntN(30)))

		placed := false
		for range orderNumberAttempts {
			o.Number = s.nextOrderNumber()
			if placed = s.accounts.PlaceOrder(ctx, userID, o, placedAt); placed {
				break
			}
		}
		if !placed {
			s.logger.Warnw("order skipped", "order", o.Number)
			continue
		}
		s.logger.Infow("added order", "order", o.Number, "restaurant", restaurant)
	}
}

func (s *seeder) seedBills(ctx context.Context, userID string, u sampleUser) {
	price := model.PlanFor(u.subscription).Price

	for offset := range 6 {
		billDate := s.now.AddDate(0, 0, -30*offset)

		status := model.BillStatusPaid
		switch {
		case offset == 0:
			status = model.BillStatusPending
		case offset == 1 && u.username == "amit":
			status = model.BillStatusPending
		}

		b := model.NewBill{
			Month:   billDate.Format("January 2006"),
			Amount:  price,
			Status:  status,
			DueDate: time.Date(billDate.Year(), billDate.Month(), 25, 0, 0, 0, 0, time.UTC),
		}
		if !s.accounts.IssueBill(ctx, userID, b) {
			s.logger.Warnw("bill skipped", "month", b.Month)
			continue
		}
		s.logger.Infow("added bill", "month", b.Month, "amount", price, "status", status)
	}
}
