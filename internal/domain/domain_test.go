package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddCollapsesDuplicates(t *testing.T) {
	cart := &Cart{UserID: 1}

	cart.Add(CartItem{Name: "Panino", UnitPrice: 10})
	cart.Add(CartItem{Name: "Panino", UnitPrice: 10})
	cart.Add(CartItem{Name: "Acqua", UnitPrice: 2, Quantity: 3})

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(26), cart.Total())
	assert.Equal(t, 5, cart.Count())
}

func TestCart_SameNameInTwoCategories(t *testing.T) {
	cart := &Cart{UserID: 1}

	cart.Add(CartItem{Category: "Pizze", Name: "Speciale", UnitPrice: 9})
	cart.Add(CartItem{Category: "Panini", Name: "Speciale", UnitPrice: 7})
	cart.Add(CartItem{Category: "Panini", Name: "Speciale", UnitPrice: 7})

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, 2, cart.Items[1].Quantity)
	assert.Equal(t, int64(23), cart.Total())

	assert.True(t, cart.Remove("Panini", "Speciale"))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Pizze", cart.Items[0].Category)
}

func TestCart_Remove(t *testing.T) {
	cart := &Cart{Items: []CartItem{{Category: "X", Name: "A", UnitPrice: 1, Quantity: 1}, {Category: "X", Name: "B", UnitPrice: 2, Quantity: 1}}}

	assert.False(t, cart.Remove("Y", "A"))
	assert.True(t, cart.Remove("X", "A"))
	assert.False(t, cart.Remove("X", "A"))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "B", cart.Items[0].Name)
}

func TestMenu_Validate(t *testing.T) {
	menu := &Menu{Categories: []Category{
		{Name: "Pizze", Items: map[string]MenuItem{"Margherita": {Price: 6}, "Bad": {Price: 1}}},
	}}

	var seen []string
	err := menu.Validate(func(category, item string) error {
		seen = append(seen, category+"/"+item)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pizze/", "Pizze/Bad", "Pizze/Margherita"}, seen)

	boom := errors.New("boom")
	err = menu.Validate(func(_, item string) error {
		if item == "Bad" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"Bad"`)
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusPreparing, false},
		{StatusReady, false},
		{StatusApproved, true},
		{StatusRejected, true},
		{StatusCompleted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		input    string
		expected Decision
		wantErr  bool
	}{
		{"approve", DecisionApprove, false},
		{"accept", DecisionApprove, false},
		{"reject", DecisionReject, false},
		{"ready", DecisionReady, false},
		{"complete", DecisionComplete, false},
		{"explode", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDecision(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestFields_Int(t *testing.T) {
	f := Fields{"amount": "50", "nickname": "Mario"}

	v, err := f.Int("amount")
	assert.NoError(t, err)
	assert.Equal(t, int64(50), v)

	_, err = f.Int("nickname")
	assert.Error(t, err)

	_, err = f.Int("missing")
	assert.Error(t, err)
}

func TestMessageRef_RoundTrip(t *testing.T) {
	ref := MessageRef{ChatID: -100123, MessageID: 42}

	parsed, err := ParseMessageRef(ref.String())
	assert.NoError(t, err)
	assert.Equal(t, ref, parsed)

	_, err = ParseMessageRef("garbage")
	assert.Error(t, err)
}

func TestMenu_Category(t *testing.T) {
	menu := Menu{Categories: []Category{{Name: "Panini", Items: map[string]MenuItem{"b": {}, "a": {}}}}}

	cat, ok := menu.Category("Panini")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, cat.ItemNames())

	_, ok = menu.Category("Dolci")
	assert.False(t, ok)
}

func TestDeliveryError_Unwrap(t *testing.T) {
	cause := errors.New("blocked by user")
	err := &DeliveryError{ChatID: 7, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "7")
}
