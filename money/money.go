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

// Package money holds rupee arithmetic for cart and order summaries.
// Amounts are decimals as sent by the marketplace backend ("50.00").
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Symbol is the Nepalese rupee sign rendered in front of amounts.
const Symbol = "रु"

var (
	// TaxRate applied on top of a cart subtotal.
	TaxRate = decimal.NewFromFloat(0.05)

	ErrNegativeQuantity = errors.New("quantity must not be negative")
)

// Summary is the subtotal/tax/total triple shown on the cart page.
type Summary struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Line multiplies a unit price by a quantity.
func Line(price decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity < 0 {
		return decimal.Zero, ErrNegativeQuantity
	}
	return price.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// Must panics if the given error is not nil.
func Must(v decimal.Decimal, err error) decimal.Decimal {
	if err != nil {
		panic(err)
	}
	return v
}

// Tax rounds subtotal*TaxRate to whole rupees, half away from zero.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(0)
}

// Summarize builds a Summary from an already computed subtotal.
func Summarize(subtotal decimal.Decimal) Summary {
	tax := Tax(subtotal)
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Render formats an amount as "रु150.00".
func Render(d decimal.Decimal) string {
	return fmt.Sprintf("%s%s", Symbol, d.StringFixed(2))
}

// RenderWhole formats an amount without paisa, e.g. for counters ("रु1,250").
func RenderWhole(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + Symbol + string(out)
	}
	return Symbol + string(out)
}
