package handlers

import (
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/utils"
)

// Store is the in-memory state of the sandbox backend.
type Store struct {
	mu sync.Mutex

	passwordCost int
	accounts     map[string]*account
	emails       map[string]string
	revoked      map[string]struct{}

	categories []models.Category
	products   []models.Product

	carts       map[string]*cartRecord
	orders      map[string]*orderRecord
	orderList   []string
	idempotency map[string]string
	addresses   map[string][]models.Address
	serviceable []string
}

type account struct {
	user         models.User
	passwordHash string
}

type cartRecord struct {
	items []models.CartItem
}

type orderRecord struct {
	order    models.Order
	response models.OrderResponse
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPasswordCost sets the bcrypt cost used for new accounts.
func WithPasswordCost(cost int) StoreOption {
	return func(s *Store) { s.passwordCost = cost }
}

// WithServiceablePrefixes sets the postal code prefixes the sandbox delivers to.
func WithServiceablePrefixes(prefixes ...string) StoreOption {
	return func(s *Store) { s.serviceable = prefixes }
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		accounts:    map[string]*account{},
		emails:      map[string]string{},
		revoked:     map[string]struct{}{},
		carts:       map[string]*cartRecord{},
		orders:      map[string]*orderRecord{},
		idempotency: map[string]string{},
		addresses:   map[string][]models.Address{},
		serviceable: []string{"110", "400", "411", "500", "560", "600"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedCatalog loads a small grocery catalog.
func (s *Store) SeedCatalog() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories = []models.Category{
		{ID: "c-dairy", Name: "Dairy & Eggs", Slug: "dairy", Featured: true},
		{ID: "c-fruit", Name: "Fruits & Vegetables", Slug: "fruits-vegetables", Featured: true},
		{ID: "c-staples", Name: "Atta, Rice & Dal", Slug: "staples"},
		{ID: "c-snacks", Name: "Snacks", Slug: "snacks"},
	}
	s.products = []models.Product{
		{ID: "p-milk", Slug: "toned-milk-1l", Name: "Toned Milk 1 L", Price: 54, MRP: 56, CategoryID: "c-dairy", Unit: "1 L", Stock: 100},
		{ID: "p-eggs", Slug: "farm-eggs-12", Name: "Farm Eggs (12)", Price: 89, MRP: 99, CategoryID: "c-dairy", Unit: "12 pcs", Stock: 40},
		{ID: "p-paneer", Slug: "malai-paneer-200g", Name: "Malai Paneer 200 g", Price: 95, CategoryID: "c-dairy", Unit: "200 g", Stock: 25},
		{ID: "p-banana", Slug: "robusta-banana-6", Name: "Robusta Banana (6)", Price: 42, MRP: 50, CategoryID: "c-fruit", Unit: "6 pcs", Stock: 60},
		{ID: "p-onion", Slug: "onion-1kg", Name: "Onion 1 kg", Price: 38, CategoryID: "c-fruit", Unit: "1 kg", Stock: 80},
		{ID: "p-atta", Slug: "whole-wheat-atta-5kg", Name: "Whole Wheat Atta 5 kg", Price: 249.5, MRP: 285, CategoryID: "c-staples", Unit: "5 kg", Stock: 30},
		{ID: "p-dal", Slug: "toor-dal-1kg", Name: "Toor Dal 1 kg", Price: 169, MRP: 180, CategoryID: "c-staples", Unit: "1 kg", Stock: 35},
		{ID: "p-chips", Slug: "salted-chips-52g", Name: "Salted Chips 52 g", Price: 20, CategoryID: "c-snacks", Unit: "52 g", Stock: 3},
	}
}

// AddUser creates an account and returns it.
func (s *Store) AddUser(name, email, phone, password string) (models.User, error) {
	hash, err := utils.HashPassword(password, s.passwordCost)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(email))
	if _, exists := s.emails[key]; exists {
		return models.User{}, errEmailTaken
	}
	user := models.User{ID: uuid.NewString(), Name: name, Email: key, Phone: phone, Role: "customer"}
	s.accounts[user.ID] = &account{user: user, passwordHash: hash}
	s.emails[key] = user.ID
	return user, nil
}

func (s *Store) accountByEmail(email string) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, false
	}
	return s.accounts[id], true
}

func (s *Store) user(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return models.User{}, false
	}
	return acc.user, true
}

func (s *Store) revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = struct{}{}
}

func (s *Store) isRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[token]
	return ok
}

// productLocked resolves a product by id or slug.
func (s *Store) productLocked(identifier string) (models.Product, bool) {
	for _, p := range s.products {
		if p.ID == identifier || p.Slug == identifier {
			return p, true
		}
	}
	return models.Product{}, false
}

func cartPayload(items []models.CartItem) models.CartPayload {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	var total float64
	for _, item := range out {
		if item.Price != nil {
			total += *item.Price * float64(item.Quantity)
		}
	}
	return models.CartPayload{Items: out, Total: models.Float64(total)}
}

func sameVariation(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
