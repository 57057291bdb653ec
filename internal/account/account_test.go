package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/quickdeliver/internal/model"
	"github.com/mmeshcher/quickdeliver/internal/password"
	"github.com/mmeshcher/quickdeliver/internal/repository"
)

var errStoreDown = errors.New("connection refused")

// memStore хранит данные в памяти с уникальностью логина и email.
type memStore struct {
	users  map[string]model.User
	orders map[string][]model.Order
	bills  map[string][]model.Bill

	down        bool
	raceOnWrite bool
	inserts     int
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]model.User{},
		orders: map[string][]model.Order{},
		bills:  map[string][]model.Bill{},
	}
}

func (s *memStore) CreateUser(ctx context.Context, u model.User) (string, error) {
	if s.down {
		return "", errStoreDown
	}
	if s.raceOnWrite {
		return "", fmt.Errorf("%w: users_username_key", repository.ErrUserExists)
	}
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return "", repository.ErrUserExists
		}
	}
	s.inserts++
	u.ID = fmt.Sprintf("id-%d", s.inserts)
	s.users[u.Username] = u
	return u.ID, nil
}

func (s *memStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if s.down {
		return nil, errStoreDown
	}
	u, ok := s.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (s *memStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	if s.down {
		return false, errStoreDown
	}
	_, ok := s.users[username]
	return ok, nil
}

func (s *memStore) EmailExists(ctx context.Context, email string) (bool, error) {
	if s.down {
		return false, errStoreDown
	}
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) UpdateSubscription(ctx context.Context, userID string, tier model.Tier) error {
	if s.down {
		return errStoreDown
	}
	for name, u := range s.users {
		if u.ID == userID {
			u.Subscription = tier
			s.users[name] = u
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (s *memStore) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	if s.down {
		return nil, errStoreDown
	}
	return append([]model.Order(nil), s.orders[userID]...), nil
}

func (s *memStore) GetBillsByUser(ctx context.Context, userID string) ([]model.Bill, error) {
	if s.down {
		return nil, errStoreDown
	}
	return append([]model.Bill(nil), s.bills[userID]...), nil
}

func (s *memStore) CreateOrder(ctx context.Context, userID string, o model.NewOrder, placedAt time.Time) error {
	if s.down {
		return errStoreDown
	}
	s.orders[userID] = append(s.orders[userID], model.Order{
		UserID:     userID,
		Number:     o.Number,
		Restaurant: o.Restaurant,
		Items:      o.Items,
		Total:      o.Total,
		Status:     o.Status,
		CreatedAt:  placedAt,
	})
	return nil
}

func (s *memStore) CreateBill(ctx context.Context, userID string, b model.NewBill) error {
	if s.down {
		return errStoreDown
	}
	s.bills[userID] = append(s.bills[userID], model.Bill{
		UserID:  userID,
		Month:   b.Month,
		Amount:  b.Amount,
		Status:  b.Status,
		DueDate: b.DueDate,
	})
	return nil
}

func TestCreateAndFind(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "alice", "a@x.com", "secret1", "Alice"))

	u, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, model.TierBasic, u.Subscription)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, password.Verify("secret1", u.PasswordHash))
	assert.False(t, password.Verify("wrong", u.PasswordHash))

	_, err = repo.FindByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
	}{
		{name: "same username", username: "alice", email: "other@x.com"},
		{name: "same email", username: "alice2", email: "a@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			repo := NewRepository(store, nil)
			ctx := context.Background()

			require.NoError(t, repo.Create(ctx, "alice", "a@x.com", "secret1", "Alice"))

			err := repo.Create(ctx, tt.username, tt.email, "secret2", "Other")
			assert.ErrorIs(t, err, ErrAlreadyExists)
			assert.Equal(t, 1, store.inserts, "no insert must be attempted")
		})
	}
}

func TestCreateConcurrentRaceMapsToConflict(t *testing.T) {
	store := newMemStore()
	store.raceOnWrite = true
	repo := NewRepository(store, nil)

	err := repo.Create(context.Background(), "bob", "b@x.com", "secret1", "Bob")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestStoreUnavailable(t *testing.T) {
	store := newMemStore()
	store.down = true
	repo := NewRepository(store, nil)
	ctx := context.Background()

	_, err := repo.FindByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.False(t, repo.UsernameExists(ctx, "alice"))
	assert.False(t, repo.EmailExists(ctx, "a@x.com"))

	err = repo.Create(ctx, "alice", "a@x.com", "secret1", "Alice")
	assert.ErrorIs(t, err, ErrUnavailable)

	orders := repo.OrdersFor(ctx, "id-1")
	assert.NotNil(t, orders)
	assert.Empty(t, orders)

	bills := repo.BillsFor(ctx, "id-1")
	assert.NotNil(t, bills)
	assert.Empty(t, bills)

	assert.False(t, repo.UpdateSubscription(ctx, "id-1", model.TierPremium))
}

func TestOrdersAndBillsAreSortedDescending(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store, nil)
	ctx := context.Background()

	base := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	for _, n := range []int{2, 5, 1} {
		ok := repo.PlaceOrder(ctx, "u1", model.NewOrder{
			Number:     fmt.Sprintf("ORD-%d", n),
			Restaurant: "Thai Express",
			Total:      float64(n * 100),
			Status:     model.OrderStatusDelivered,
		}, base.AddDate(0, 0, n))
		require.True(t, ok)
	}

	orders := repo.OrdersFor(ctx, "u1")
	require.Len(t, orders, 3)
	assert.Equal(t, "ORD-5", orders[0].Number)
	assert.Equal(t, "ORD-2", orders[1].Number)
	assert.Equal(t, "ORD-1", orders[2].Number)

	for _, m := range []time.Month{time.September, time.December, time.October} {
		require.True(t, repo.IssueBill(ctx, "u1", model.NewBill{
			Month:   m.String() + " 2024",
			Amount:  499,
			Status:  model.BillStatusPaid,
			DueDate: time.Date(2024, m, 25, 0, 0, 0, 0, time.UTC),
		}))
	}

	bills := repo.BillsFor(ctx, "u1")
	require.Len(t, bills, 3)
	assert.Equal(t, "December 2024", bills[0].Month)
	assert.Equal(t, "October 2024", bills[1].Month)
	assert.Equal(t, "September 2024", bills[2].Month)
}

func TestUpdateSubscription(t *testing.T) {
	store := newMemStore()
	repo := NewRepository(store, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "alice", "a@x.com", "secret1", "Alice"))
	u, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)

	assert.True(t, repo.UpdateSubscription(ctx, u.ID, model.TierPremium))
	u, err = repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.TierPremium, u.Subscription)

	assert.False(t, repo.UpdateSubscription(ctx, u.ID, model.Tier("Gold")))
	assert.False(t, repo.UpdateSubscription(ctx, "missing", model.TierBasic))
}

func TestNegativeAmountsRejected(t *testing.T) {
	repo := NewRepository(newMemStore(), nil)
	ctx := context.Background()

	assert.False(t, repo.PlaceOrder(ctx, "u1", model.NewOrder{Number: "ORD-1", Total: -1}, time.Now()))
	assert.False(t, repo.IssueBill(ctx, "u1", model.NewBill{Month: "May 2024", Amount: -5}))
}
