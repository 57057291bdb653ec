// Package account реализует хранилище учётных записей поверх PostgreSQL-репозитория.
//
// Операции чтения никогда не возвращают ошибку хранилища вызывающему коду:
// при сбое они отдают пустой результат. Операции записи сообщают о неудаче.
package account

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/quickdeliver/internal/model"
	"github.com/mmeshcher/quickdeliver/internal/password"
	"github.com/mmeshcher/quickdeliver/internal/repository"
)

var (
	// ErrNotFound возвращается, если пользователь не найден.
	ErrNotFound = errors.New("account not found")
	// ErrAlreadyExists возвращается, если логин или email уже заняты.
	ErrAlreadyExists = errors.New("username or email already exists")
	// ErrUnavailable возвращается при сбое хранилища.
	ErrUnavailable = errors.New("credential store unavailable")
)

// Store описывает контракт доступа к данным, используемый хранилищем учётных записей.
type Store interface {
	CreateUser(ctx context.Context, u model.User) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateSubscription(ctx context.Context, userID string, tier model.Tier) error
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	GetBillsByUser(ctx context.Context, userID string) ([]model.Bill, error)
	CreateOrder(ctx context.Context, userID string, o model.NewOrder, placedAt time.Time) error
	CreateBill(ctx context.Context, userID string, b model.NewBill) error
}

// Repository управляет хранилищем учётных записей, заказов и счетов.
type Repository struct {
	store  Store
	logger *zap.Logger
}

// NewRepository создаёт хранилище учётных записей.
func NewRepository(store Store, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		store:  store,
		logger: logger,
	}
}

// FindByUsername ищет пользователя по логину с учётом регистра.
// Возвращает ErrNotFound или ErrUnavailable.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := r.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Error("find user error", zap.Error(err), zap.String("username", username))
		return nil, errors.Join(ErrUnavailable, err)
	}
	return u, nil
}

// UsernameExists проверяет, занят ли логин. При сбое хранилища возвращает false.
func (r *Repository) UsernameExists(ctx context.Context, username string) bool {
	ok, err := r.store.UsernameExists(ctx, username)
	if err != nil {
		r.logger.Error("check username error", zap.Error(err))
		return false
	}
	return ok
}

// EmailExists проверяет, занят ли email. При сбое хранилища возвращает false.
func (r *Repository) EmailExists(ctx context.Context, email string) bool {
	ok, err := r.store.EmailExists(ctx, email)
	if err != nil {
		r.logger.Error("check email error", zap.Error(err))
		return false
	}
	return ok
}

// Create регистрирует пользователя с подпиской Basic.
//
// Если логин или email заняты, вставка не выполняется и возвращается ErrAlreadyExists.
// Гонка с параллельной регистрацией разрешается уникальными индексами хранилища
// и также даёт ErrAlreadyExists.
func (r *Repository) Create(ctx context.Context, username, email, plaintext, name string) error {
	usernameTaken, err := r.store.UsernameExists(ctx, username)
	if err != nil {
		r.logger.Error("check username error", zap.Error(err))
		return errors.Join(ErrUnavailable, err)
	}
	emailTaken, err := r.store.EmailExists(ctx, email)
	if err != nil {
		r.logger.Error("check email error", zap.Error(err))
		return errors.Join(ErrUnavailable, err)
	}
	if usernameTaken || emailTaken {
		return ErrAlreadyExists
	}

	hashed, err := password.Hash(plaintext)
	if err != nil {
		return err
	}

	_, err = r.store.CreateUser(ctx, model.User{
		Username:     username,
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		Subscription: model.TierBasic,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return ErrAlreadyExists
		}
		r.logger.Error("create user error", zap.Error(err))
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// OrdersFor возвращает заказы пользователя от новых к старым. При сбое возвращается пустой список.
func (r *Repository) OrdersFor(ctx context.Context, userID string) []model.Order {
	orders, err := r.store.GetOrdersByUser(ctx, userID)
	if err != nil {
		r.logger.Error("get orders error", zap.Error(err), zap.String("userID", userID))
		return []model.Order{}
	}
	if orders == nil {
		return []model.Order{}
	}

	slices.SortStableFunc(orders, func(a, b model.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return orders
}

// BillsFor возвращает счета пользователя по убыванию срока оплаты. При сбое возвращается пустой список.
func (r *Repository) BillsFor(ctx context.Context, userID string) []model.Bill {
	bills, err := r.store.GetBillsByUser(ctx, userID)
	if err != nil {
		r.logger.Error("get bills error", zap.Error(err), zap.String("userID", userID))
		return []model.Bill{}
	}
	if bills == nil {
		return []model.Bill{}
	}

	slices.SortStableFunc(bills, func(a, b model.Bill) int {
		return b.DueDate.Compare(a.DueDate)
	})
	return bills
}

// UpdateSubscription меняет уровень подписки пользователя.
func (r *Repository) UpdateSubscription(ctx context.Context, userID string, tier model.Tier) bool {
	if _, err := model.ParseTier(string(tier)); err != nil {
		return false
	}
	if err := r.store.UpdateSubscription(ctx, userID, tier); err != nil {
		r.logger.Error("update subscription error", zap.Error(err), zap.String("userID", userID))
		return false
	}
	return true
}

// PlaceOrder сохраняет заказ пользователя.
func (r *Repository) PlaceOrder(ctx context.Context, userID string, o model.NewOrder, placedAt time.Time) bool {
	if o.Total < 0 {
		return false
	}
	if err := r.store.CreateOrder(ctx, userID, o, placedAt); err != nil {
		r.logger.Error("place order error", zap.Error(err), zap.String("order", o.Number))
		return false
	}
	return true
}

// IssueBill выставляет счёт пользователю.
func (r *Repository) IssueBill(ctx context.Context, userID string, b model.NewBill) bool {
	if b.Amount < 0 {
		return false
	}
	if err := r.store.CreateBill(ctx, userID, b); err != nil {
		r.logger.Error("issue bill error", zap.Error(err), zap.String("month", b.Month))
		return false
	}
	return true
}
