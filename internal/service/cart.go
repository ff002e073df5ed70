package service

import (
	"fmt"

	"backoffice/internal/domain"
	"backoffice/internal/repository"
)

// CartService keeps per-user carts
type CartService struct {
	carts *repository.Table[domain.Cart]
	menu  *MenuService
}

// NewCartService creates a new cart service
func NewCartService(store repository.Store, menu *MenuService) *CartService {
	return &CartService{
		carts: repository.NewTable[domain.Cart](store, repository.TableCarts),
		menu:  menu,
	}
}

// Get returns the user's cart, empty when none was saved
func (s *CartService) Get(userID int64) (*domain.Cart, error) {
	c, err := s.carts.Get(userKey(userID))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &domain.Cart{UserID: userID}, nil
	}
	return c, nil
}

// Add puts one unit of a menu item in the cart at the current menu price
func (s *CartService) Add(userID int64, category, name string) (*domain.Cart, error) {
	item, err := s.menu.Item(category, name)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	c.Add(domain.CartItem{Name: name, Category: category, UnitPrice: item.Price, Quantity: 1})

	if err := s.carts.Put(userKey(userID), c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// ForCheckout returns the user's cart, or ErrEmptyCart when nothing is in it
func (s *CartService) ForCheckout(userID int64) (*domain.Cart, error) {
	c, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	return c, nil
}

// Remove drops an item from the cart
func (s *CartService) Remove(userID int64, category, name string) (*domain.Cart, error) {
	c, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(category, name) {
		return nil, domain.ErrNotFound
	}
	if err := s.carts.Put(userKey(userID), c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Clear empties the cart
func (s *CartService) Clear(userID int64) error {
	return s.carts.Delete(userKey(userID))
}
