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
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

// Nepali mobile numbers in the form +977-98XXXXXXXX.
var phonePattern = regexp.MustCompile(`^\+977-9[78][0-9]{8}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("npphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
}

type Payload interface {
	Validate() error
}

type LoginPayload struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type RegisterPayload struct {
	UserType        string `validate:"required,oneof=farmer customer"`
	Username        string `validate:"required"`
	Email           string `validate:"required,email"`
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	Phone           string `validate:"required,npphone"`
	Province        string `validate:"required"`
	Address         string `validate:"required"`
	FarmName        string `validate:"required_if=UserType farmer"`
}

type AddToCartPayload struct {
	ProductID          int `validate:"required_without=InventoryProductID"`
	InventoryProductID int `validate:"required_without=ProductID"`
	Quantity           int `validate:"required,gte=1"`
}

type ReviewPayload struct {
	Rating int    `validate:"required,gte=1,lte=5"`
	Review string `validate:"max=2000"`
}

type SendMessagePayload struct {
	ReceiverID int    `validate:"required,gt=0"`
	Content    string `validate:"required"`
}

type ContactPayload struct {
	Name    string `validate:"required"`
	Email   string `validate:"required,email"`
	Subject string `validate:"required"`
	Message string `validate:"required"`
}

type SetThemePayload struct {
	Theme string `validate:"required,oneof=light dark"`
}

type OrderNowPayload struct {
	ProductID          int    `validate:"required_without=InventoryProductID"`
	InventoryProductID int    `validate:"required_without=ProductID"`
	Quantity           int    `validate:"required,gte=1"`
	Note               string `validate:"max=500"`
}

type OrderItemStatusPayload struct {
	Status string `validate:"required,oneof=accepted shipped delivered cancelled"`
}

// ProductPayload keeps the raw form text so a rejected form is shown back
// as typed.
type ProductPayload struct {
	Name           string `validate:"required,max=255"`
	Category       string `validate:"required"`
	Subcategory    string `validate:"max=100"`
	Price          string `validate:"required,amount"`
	MinOrder       string `validate:"omitempty,number"`
	Unit           string `validate:"required,oneof=kg g lb piece dozen bunch litre ml pack crate other"`
	Stock          string `validate:"required,number"`
	Status         string `validate:"required,oneof='Active' 'Out of Stock'"`
	Province       string `validate:"required"`
	ProductAddress string `validate:"max=255"`
	Description    string
}

type BulkDeletePayload struct {
	IDs []int `validate:"required,min=1,dive,gt=0"`
}

func (p *LoginPayload) Validate() error           { return validate.Struct(p) }
func (p *RegisterPayload) Validate() error        { return validate.Struct(p) }
func (p *AddToCartPayload) Validate() error       { return validate.Struct(p) }
func (p *ReviewPayload) Validate() error          { return validate.Struct(p) }
func (p *SendMessagePayload) Validate() error     { return validate.Struct(p) }
func (p *ContactPayload) Validate() error         { return validate.Struct(p) }
func (p *SetThemePayload) Validate() error        { return validate.Struct(p) }
func (p *OrderNowPayload) Validate() error        { return validate.Struct(p) }
func (p *OrderItemStatusPayload) Validate() error { return validate.Struct(p) }
func (p *ProductPayload) Validate() error         { return validate.Struct(p) }
func (p *BulkDeletePayload) Validate() error      { return validate.Struct(p) }

// Reformat validation errors into a single error for the error page.
func ValidationErrorResponse(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.New("invalid validation error format")
	}
	var msg []string
	for _, e := range validationErrs {
		msg = append(msg, fmt.Sprintf("Field '%s' is invalid: %s", e.Field(), e.Tag()))
	}
	return errors.New(strings.Join(msg, "\n"))
}

// FieldErrors maps each failing field to the message shown next to it in a
// form. Non-validation errors yield nil.
func FieldErrors(err error) map[string]string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		if _, seen := out[e.Field()]; !seen {
			out[e.Field()] = message(e)
		}
	}
	return out
}

// Message returns the first human-readable message of err.
func Message(err error) string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		if err != nil {
			return err.Error()
		}
		return ""
	}
	return message(validationErrs[0])
}

var labels = map[string]string{
	"FirstName":       "First name",
	"LastName":        "Last name",
	"ConfirmPassword": "Confirm password",
	"Phone":           "Phone number",
	"FarmName":        "Farm name",
	"ReceiverID":      "Recipient",
	"ProductID":       "Product",
	"MinOrder":        "Min order",
	"ProductAddress":  "Product address",
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

func message(e validator.FieldError) string {
	switch {
	case e.Field() == "Rating":
		return "Please select a rating."
	case e.Field() == "IDs":
		return "Please select at least one product."
	case e.Tag() == "amount":
		return label(e.Field()) + " must be a positive amount"
	case e.Tag() == "number":
		return label(e.Field()) + " must be a whole number"
	case e.Field() == "ConfirmPassword" && e.Tag() == "eqfield":
		return "Passwords do not match"
	case e.Tag() == "email":
		return "Please enter a valid email address"
	case e.Tag() == "npphone":
		return "Please enter a valid Nepali phone number (e.g. +977-98XXXXXXXX)"
	case e.Field() == "Password" && e.Tag() == "min":
		return "Password must be at least 8 characters long"
	case e.Tag() == "required", e.Tag() == "required_if", e.Tag() == "required_without":
		return label(e.Field()) + " is required"
	case e.Tag() == "gte" && e.Field() == "Quantity":
		return "Quantity must be at least 1"
	}
	return fmt.Sprintf("%s is invalid", label(e.Field()))
}
