package service

import (
	"fmt"
	"os"
	"strings"

	"backoffice/internal/domain"
	"backoffice/internal/repository"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const menuKey = "catalog"

// DefaultMenu is used when no catalog has been stored yet
func DefaultMenu() domain.Menu {
	return domain.Menu{Categories: []domain.Category{
		{Name: "🍔 Panini", Items: map[string]domain.MenuItem{
			"Hamburger Classico": {Price: 8, Description: "Hamburger con carne, lattuga e pomodoro"},
			"Hamburger Deluxe":   {Price: 12, Description: "Hamburger con doppia carne e formaggio"},
			"Cheeseburger":       {Price: 10, Description: "Hamburger con formaggio fuso"},
		}},
		{Name: "🥤 Bevande", Items: map[string]domain.MenuItem{
			"Coca Cola": {Price: 3, Description: "Bibita fresca"},
			"Acqua":     {Price: 2, Description: "Acqua naturale"},
			"Birra":     {Price: 5, Description: "Birra fresca"},
		}},
		{Name: "🍟 Extra", Items: map[string]domain.MenuItem{
			"Patatine Fritte": {Price: 4, Description: "Patatine croccanti"},
			"Onion Rings":     {Price: 4, Description: "Anelli di cipolla fritti"},
			"Salse Varie":     {Price: 1, Description: "Ketchup, maionese, senape"},
		}},
	}}
}

// LoadMenuFile reads a YAML catalog and rejects it when check refuses one of
// its names
func LoadMenuFile(path string, check func(category, item string) error) (*domain.Menu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu file: %w", err)
	}

	var menu domain.Menu
	if err := yaml.Unmarshal(data, &menu); err != nil {
		return nil, fmt.Errorf("parse menu file: %w", err)
	}
	for i := range menu.Categories {
		if menu.Categories[i].Items == nil {
			menu.Categories[i].Items = map[string]domain.MenuItem{}
		}
	}
	if err := menu.Validate(check); err != nil {
		return nil, fmt.Errorf("invalid menu file: %w", err)
	}
	return &menu, nil
}

// MenuService manages the restaurant catalog
type MenuService struct {
	menu   *repository.Table[domain.Menu]
	logger *zap.Logger
}

// NewMenuService creates a new menu service
func NewMenuService(store repository.Store, logger *zap.Logger) *MenuService {
	return &MenuService{
		menu:   repository.NewTable[domain.Menu](store, repository.TableMenu),
		logger: logger,
	}
}

// Seed stores def unless a catalog already exists
func (s *MenuService) Seed(def domain.Menu) error {
	current, err := s.menu.Get(menuKey)
	if err != nil {
		return err
	}
	if current != nil {
		return nil
	}
	s.logger.Info("Seeding menu", zap.Int("categories", len(def.Categories)))
	return s.menu.Put(menuKey, &def)
}

// Catalog returns the current menu
func (s *MenuService) Catalog() (*domain.Menu, error) {
	m, err := s.menu.Get(menuKey)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &domain.Menu{}, nil
	}
	return m, nil
}

// Category returns one category
func (s *MenuService) Category(name string) (*domain.Category, error) {
	m, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	cat, ok := m.Category(name)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cat, nil
}

// Item looks up a menu item
func (s *MenuService) Item(category, name string) (domain.MenuItem, error) {
	cat, err := s.Category(category)
	if err != nil {
		return domain.MenuItem{}, err
	}
	item, ok := cat.Items[name]
	if !ok {
		return domain.MenuItem{}, domain.ErrNotFound
	}
	return item, nil
}

// update loads the catalog, applies fn and saves it back
func (s *MenuService) update(fn func(m *domain.Menu) error) error {
	m, err := s.Catalog()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return s.menu.Put(menuKey, m)
}

// AddCategory appends an empty category
func (s *MenuService) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	return s.update(func(m *domain.Menu) error {
		if _, ok := m.Category(name); ok {
			return domain.ErrAlreadyExists
		}
		m.Categories = append(m.Categories, domain.Category{Name: name, Items: map[string]domain.MenuItem{}})
		return nil
	})
}

// RemoveCategory deletes an empty category
func (s *MenuService) RemoveCategory(name string) error {
	return s.update(func(m *domain.Menu) error {
		for i, c := range m.Categories {
			if c.Name != name {
				continue
			}
			if len(c.Items) > 0 {
				return domain.ErrCategoryNotEmpty
			}
			m.Categories = append(m.Categories[:i], m.Categories[i+1:]...)
			return nil
		}
		return domain.ErrNotFound
	})
}

// AddItem inserts a new item into category
func (s *MenuService) AddItem(category, name string, item domain.MenuItem) error {
	name = strings.TrimSpace(name)
	return s.update(func(m *domain.Menu) error {
		cat, ok := m.Category(category)
		if !ok {
			return domain.ErrNotFound
		}
		if _, exists := cat.Items[name]; exists {
			return domain.ErrAlreadyExists
		}
		if cat.Items == nil {
			cat.Items = map[string]domain.MenuItem{}
		}
		cat.Items[name] = item
		return nil
	})
}

// RemoveItem deletes an item
func (s *MenuService) RemoveItem(category, name string) error {
	return s.editItem(category, name, func(cat *domain.Category, _ *domain.MenuItem) {
		delete(cat.Items, name)
	})
}

// EditPrice changes an item's price
func (s *MenuService) EditPrice(category, name string, price int64) error {
	return s.editItem(category, name, func(cat *domain.Category, item *domain.MenuItem) {
		item.Price = price
		cat.Items[name] = *item
	})
}

// EditDescription changes an item's description
func (s *MenuService) EditDescription(category, name, description string) error {
	return s.editItem(category, name, func(cat *domain.Category, item *domain.MenuItem) {
		item.Description = description
		cat.Items[name] = *item
	})
}

func (s *MenuService) editItem(category, name string, fn func(cat *domain.Category, item *domain.MenuItem)) error {
	return s.update(func(m *domain.Menu) error {
		cat, ok := m.Category(category)
		if !ok {
			return domain.ErrNotFound
		}
		item, ok := cat.Items[name]
		if !ok {
			return domain.ErrNotFound
		}
		fn(cat, &item)
		return nil
	})
}
