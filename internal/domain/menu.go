package domain

import (
	"fmt"
	"sort"
)

// MenuItem is a priced dish
type MenuItem struct {
	Price       int64  `json:"price" yaml:"price"`
	Description string `json:"description" yaml:"description"`
}

// Category groups menu items
type Category struct {
	Name  string              `json:"name" yaml:"name"`
	Items map[string]MenuItem `json:"items" yaml:"items"`
}

// ItemNames returns item names in stable order
func (c Category) ItemNames() []string {
	names := make([]string, 0, len(c.Items))
	for name := range c.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Menu is the ordered list of categories
type Menu struct {
	Categories []Category `json:"categories" yaml:"categories"`
}

// Category looks up a category by name
func (m *Menu) Category(name string) (*Category, bool) {
	for i := range m.Categories {
		if m.Categories[i].Name == name {
			return &m.Categories[i], true
		}
	}
	return nil, false
}

// Validate runs check over every category alone and over each of its items
func (m *Menu) Validate(check func(category, item string) error) error {
	for _, c := range m.Categories {
		if err := check(c.Name, ""); err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
		for _, name := range c.ItemNames() {
			if err := check(c.Name, name); err != nil {
				return fmt.Errorf("item %q of %q: %w", name, c.Name, err)
			}
		}
	}
	return nil
}

// Cart is a user's pending selection
type Cart struct {
	UserID int64      `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// Add inserts an item or increments the quantity of the same dish of the
// same category
func (c *Cart) Add(item CartItem) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	for i := range c.Items {
		if c.Items[i].Category == item.Category && c.Items[i].Name == item.Name {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Remove drops an item entirely, reporting whether it was present
func (c *Cart) Remove(category, name string) bool {
	for i := range c.Items {
		if c.Items[i].Category == category && c.Items[i].Name == name {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Total returns the sum of all subtotals
func (c *Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// Count returns the number of units in the cart
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
