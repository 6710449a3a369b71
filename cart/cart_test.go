// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cart

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishikarobar/storefront/backend"
)

type fakeAPI struct {
	calls   []string
	cart    *backend.Cart
	profile *backend.Profile
	placed  *backend.OrderRequest
	failOn  string
}

func (f *fakeAPI) fail(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeAPI) Cart(_ context.Context, _ string) (*backend.Cart, error) {
	if err := f.fail("cart"); err != nil {
		return nil, err
	}
	return f.cart, nil
}

func (f *fakeAPI) UpdateCartItem(_ context.Context, _ string, id int, patch backend.CartItemPatch) (*backend.CartItem, error) {
	if err := f.fail("patch"); err != nil {
		return nil, err
	}
	out := &backend.CartItem{ID: id}
	if patch.Quantity != nil {
		out.Quantity = *patch.Quantity
	}
	if patch.Note != nil {
		out.Note = *patch.Note
	}
	return out, nil
}

func (f *fakeAPI) RemoveCartItem(_ context.Context, _ string, _ int) error {
	return f.fail("delete")
}

func (f *fakeAPI) Profile(_ context.Context, _ string) (*backend.Profile, error) {
	if err := f.fail("profile"); err != nil {
		return nil, err
	}
	return f.profile, nil
}

func (f *fakeAPI) PlaceOrder(_ context.Context, _ string, in backend.OrderRequest) (*backend.Order, error) {
	if err := f.fail("order"); err != nil {
		return nil, err
	}
	f.placed = &in
	return &backend.Order{ID: 42, Status: backend.StatusPending}, nil
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func tomato(qty int) *backend.CartItem {
	return &backend.CartItem{
		ID:       1,
		Quantity: qty,
		Product: &backend.Product{
			ID: 10, Name: "Tomato", Price: decimal.RequireFromString("50.00"),
			Stock: 10, MinOrder: 1, Farmer: &backend.FarmerSummary{ID: 7},
		},
	}
}

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		name                            string
		current, delta, minOrder, stock int
		want                            int
	}{
		{"decrement", 3, -1, 1, 10, 2},
		{"decrement at min", 2, -1, 2, 10, 2},
		{"decrement below min", 1, -1, 0, 10, 1},
		{"increment", 3, 1, 1, 10, 4},
		{"increment at stock", 10, 1, 1, 10, 10},
		{"increment past stock", 9, 5, 1, 10, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampQuantity(tt.current, tt.delta, tt.minOrder, tt.stock))
		})
	}
}

func TestClampOrderQuantityStockWins(t *testing.T) {
	assert.Equal(t, 5, ClampOrderQuantity(1, 5, 20))
	assert.Equal(t, 3, ClampOrderQuantity(4, 5, 3))
	assert.Equal(t, 20, ClampOrderQuantity(99, 1, 20))
}

func TestSelection(t *testing.T) {
	items := []*backend.CartItem{{ID: 1}, {ID: 2}, {ID: 3}}
	all := SelectAll(items)
	assert.True(t, all.AllSelected(items))

	sel := ParseSelection([]string{"1", "x", "3"})
	assert.False(t, sel.AllSelected(items))
	got := sel.Filter(items)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)

	assert.False(t, Selection{}.AllSelected(nil))
}

func TestSummarizeMixedLines(t *testing.T) {
	items := []*backend.CartItem{
		tomato(3),
		{ID: 2, Quantity: 2, InventoryProduct: &backend.Product{Price: decimal.RequireFromString("14.50")}},
		{ID: 3, Quantity: 1},
	}
	s := Summarize(items)
	assert.Equal(t, "179", s.Subtotal.String())
	assert.Equal(t, "9", s.Tax.String())
	assert.Equal(t, "188", s.Total.String())
}

func TestTomatoScenario(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, quietLog())
	c := &backend.Cart{Items: []*backend.CartItem{tomato(2)}}

	it, err := svc.ChangeQuantity(context.Background(), "t", c, 1, +1)
	require.NoError(t, err)
	assert.Equal(t, []string{"patch"}, api.calls)
	assert.Equal(t, 3, it.Quantity)
	assert.Equal(t, "Tomato", it.Item().Name, "product kept on merge")

	s := Summarize(c.Items)
	assert.True(t, s.Subtotal.Equal(decimal.NewFromInt(150)))
	assert.True(t, s.Tax.Equal(decimal.NewFromInt(8)))
	assert.True(t, s.Total.Equal(decimal.NewFromInt(158)))
}

func TestChangeQuantityAtBoundSkipsBackend(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, quietLog())
	c := &backend.Cart{Items: []*backend.CartItem{tomato(1)}}

	it, err := svc.ChangeQuantity(context.Background(), "t", c, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, it.Quantity)
	assert.Empty(t, api.calls)

	_, err = svc.ChangeQuantity(context.Background(), "t", c, 99, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestFailedPatchLeavesCart(t *testing.T) {
	api := &fakeAPI{failOn: "patch"}
	svc := NewService(api, quietLog())
	c := &backend.Cart{Items: []*backend.CartItem{tomato(2)}}
	_, err := svc.ChangeQuantity(context.Background(), "t", c, 1, 1)
	require.Error(t, err)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestSetNoteAndRemove(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, quietLog())
	c := &backend.Cart{Items: []*backend.CartItem{tomato(2), {ID: 2, Quantity: 1}}}

	it, err := svc.SetNote(context.Background(), "t", c, 1, "ripe please")
	require.NoError(t, err)
	assert.Equal(t, "ripe please", it.Note)

	require.NoError(t, svc.Remove(context.Background(), "t", c, 1))
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].ID)
}

func TestCheckoutOverStockMakesNoCalls(t *testing.T) {
	api := &fakeAPI{profile: &backend.Profile{}}
	svc := NewService(api, quietLog())
	over := tomato(12)
	c := &backend.Cart{Items: []*backend.CartItem{over}}

	_, err := svc.Checkout(context.Background(), "t", c, SelectAll(c.Items))
	require.Error(t, err)
	var se *StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, `Cannot order more than available stock for "Tomato" (max: 10).`, err.Error())
	assert.Empty(t, api.calls)
}

func TestCheckoutNothingSelected(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, quietLog())
	c := &backend.Cart{Items: []*backend.CartItem{tomato(2)}}
	_, err := svc.Checkout(context.Background(), "t", c, Selection{})
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Empty(t, api.calls)
}

func TestCheckoutPlacesOrder(t *testing.T) {
	profile := &backend.Profile{}
	profile.Details.Address = "Lalitpur"
	api := &fakeAPI{profile: profile}
	svc := NewService(api, quietLog())
	inv := &backend.CartItem{ID: 2, Quantity: 1, Note: "n", InventoryProduct: &backend.Product{ID: 5, Stock: 3}}
	c := &backend.Cart{Items: []*backend.CartItem{tomato(2), inv}}

	order, err := svc.Checkout(context.Background(), "t", c, SelectAll(c.Items))
	require.NoError(t, err)
	assert.Equal(t, 42, order.ID)
	assert.Equal(t, []string{"profile", "order"}, api.calls)
	require.NotNil(t, api.placed)
	assert.Equal(t, "Lalitpur", api.placed.ShippingAddress)
	assert.Equal(t, []backend.OrderLine{
		{ProductID: 10, FarmerID: 7, Quantity: 2},
		{InventoryProductID: 5, Quantity: 1, Note: "n"},
	}, api.placed.Items)
}

func TestOrderNowClamps(t *testing.T) {
	api := &fakeAPI{profile: &backend.Profile{}}
	svc := NewService(api, quietLog())
	p := &backend.Product{ID: 10, Name: "Rice", Stock: 4, MinOrder: 2}

	_, err := svc.OrderNow(context.Background(), "t", p, false, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 4, api.placed.Items[0].Quantity)

	empty := &backend.Product{ID: 11, Name: "Milk", Stock: 0}
	api.calls = nil
	_, err = svc.OrderNow(context.Background(), "t", empty, true, 1, "")
	require.Error(t, err)
	assert.Empty(t, api.calls)
}

func TestLoadSelectsAll(t *testing.T) {
	api := &fakeAPI{cart: &backend.Cart{Items: []*backend.CartItem{tomato(1), {ID: 2}}}}
	svc := NewService(api, quietLog())
	c, sel, err := svc.Load(context.Background(), "t")
	require.NoError(t, err)
	assert.True(t, sel.AllSelected(c.Items))
	assert.Equal(t, 2, UniqueCount(c))
	assert.Equal(t, 0, UniqueCount(nil))
}
