// Copyright 2023 Google LLC
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

package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegister() RegisterPayload {
	return RegisterPayload{
		UserType:        "farmer",
		Username:        "ram",
		Email:           "ram@example.com",
		FirstName:       "Ram",
		LastName:        "Thapa",
		Password:        "secret123",
		ConfirmPassword: "secret123",
		Phone:           "+977-9812345678",
		Province:        "Bagmati",
		Address:         "Kathmandu",
		FarmName:        "Green Acres",
	}
}

func TestRegisterPayload(t *testing.T) {
	p := validRegister()
	assert.NoError(t, p.Validate())

	p.ConfirmPassword = "other"
	p.Phone = "9812345678"
	err := p.Validate()
	require.Error(t, err)
	fields := FieldErrors(err)
	assert.Equal(t, "Passwords do not match", fields["ConfirmPassword"])
	assert.Equal(t, "Please enter a valid Nepali phone number (e.g. +977-98XXXXXXXX)", fields["Phone"])
}

func TestRegisterFarmNameOnlyForFarmers(t *testing.T) {
	p := validRegister()
	p.FarmName = ""
	err := p.Validate()
	require.Error(t, err)
	assert.Equal(t, "Farm name is required", FieldErrors(err)["FarmName"])

	p.UserType = "customer"
	assert.NoError(t, p.Validate())
}

func TestReviewPayloadRating(t *testing.T) {
	for _, rating := range []int{0, 6} {
		p := ReviewPayload{Rating: rating, Review: "ok"}
		err := p.Validate()
		require.Error(t, err)
		assert.Equal(t, "Please select a rating.", Message(err))
	}
	p := ReviewPayload{Rating: 5}
	assert.NoError(t, p.Validate())
}

func TestAddToCartPayload(t *testing.T) {
	assert.NoError(t, (&AddToCartPayload{ProductID: 1, Quantity: 2}).Validate())
	assert.NoError(t, (&AddToCartPayload{InventoryProductID: 1, Quantity: 2}).Validate())
	assert.Error(t, (&AddToCartPayload{Quantity: 2}).Validate())
	assert.Error(t, (&AddToCartPayload{ProductID: 1}).Validate())
}

func TestSetThemePayload(t *testing.T) {
	assert.NoError(t, (&SetThemePayload{Theme: "dark"}).Validate())
	assert.Error(t, (&SetThemePayload{Theme: "sepia"}).Validate())
}

func TestValidationErrorResponse(t *testing.T) {
	err := (&LoginPayload{}).Validate()
	require.Error(t, err)
	resp := ValidationErrorResponse(err)
	assert.Contains(t, resp.Error(), "Field 'Username' is invalid: required")

	assert.EqualError(t, ValidationErrorResponse(errors.New("x")), "invalid validation error format")
	assert.Nil(t, FieldErrors(errors.New("x")))
	assert.Equal(t, "x", Message(errors.New("x")))
}

func validProduct() ProductPayload {
	return ProductPayload{
		Name:     "Tomato",
		Category: "Vegetables",
		Price:    "55.50",
		Unit:     "kg",
		Stock:    "0",
		Status:   "Out of Stock",
		Province: "Bagmati",
	}
}

func TestProductPayload(t *testing.T) {
	p := validProduct()
	assert.NoError(t, p.Validate())

	p.MinOrder = "5"
	assert.NoError(t, p.Validate())

	tests := []struct {
		name  string
		edit  func(*ProductPayload)
		field string
		msg   string
	}{
		{"zero price", func(p *ProductPayload) { p.Price = "0" }, "Price", "Price must be a positive amount"},
		{"text price", func(p *ProductPayload) { p.Price = "cheap" }, "Price", "Price must be a positive amount"},
		{"fractional stock", func(p *ProductPayload) { p.Stock = "1.5" }, "Stock", "Stock must be a whole number"},
		{"negative min order", func(p *ProductPayload) { p.MinOrder = "-1" }, "MinOrder", "Min order must be a whole number"},
		{"missing stock", func(p *ProductPayload) { p.Stock = "" }, "Stock", "Stock is required"},
		{"unknown unit", func(p *ProductPayload) { p.Unit = "tonne" }, "Unit", "Unit is invalid"},
		{"unknown status", func(p *ProductPayload) { p.Status = "Sold" }, "Status", "Status is invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.edit(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.msg, FieldErrors(err)[tt.field])
		})
	}
}

func TestBulkDeletePayload(t *testing.T) {
	err := (&BulkDeletePayload{}).Validate()
	require.Error(t, err)
	assert.Equal(t, "Please select at least one product.", Message(err))
	assert.NoError(t, (&BulkDeletePayload{IDs: []int{3, 4}}).Validate())
}
