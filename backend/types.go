// Copyright 2024 Google LLC
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

package backend

// types.go defines the DTOs exchanged with the marketplace REST API.
// Field names follow the backend's snake_case JSON.

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// UserType is the role a marketplace account signs in with.
type UserType string

const (
	Farmer   UserType = "farmer"
	Customer UserType = "customer"
)

// User is the Django user embedded in profiles.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Profile is the body of GET /api/profile/ once normalized.
type Profile struct {
	UserType UserType
	Details  ProfileDetails
	Raw      json.RawMessage
}

// ProfileDetails covers both farmer and customer profile fields.
type ProfileDetails struct {
	User              User     `json:"user"`
	UserType          UserType `json:"userType"`
	Phone             string   `json:"phone"`
	Province          string   `json:"province"`
	Address           string   `json:"address"`
	ProfilePicture    *string  `json:"profile_picture"`
	JoinDate          string   `json:"join_date"`
	FarmName          string   `json:"farm_name,omitempty"`
	FarmSize          string   `json:"farm_size,omitempty"`
	FarmingExperience string   `json:"farming_experience,omitempty"`
	CropTypes         string   `json:"crop_types,omitempty"`
	BusinessName      string   `json:"business_name,omitempty"`
	BusinessType      string   `json:"business_type,omitempty"`
}

// FarmerSummary is the farmer block nested in products.
type FarmerSummary struct {
	ID             int     `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	FarmName       string  `json:"farm_name"`
	Province       string  `json:"province"`
	ProfilePicture *string `json:"profile_picture"`
}

// Product is a farmer listing or an inventory product.
type Product struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Subcategory    string          `json:"subcategory"`
	Image          *string         `json:"image"`
	Price          decimal.Decimal `json:"price"`
	MinOrder       int             `json:"min_order"`
	Unit           string          `json:"unit"`
	Province       string          `json:"province"`
	ProductAddress string          `json:"product_address,omitempty"`
	Stock          int             `json:"stock"`
	Status         string          `json:"status"`
	DateAdded      string          `json:"date_added"`
	Rating         float64         `json:"rating"`
	ReviewCount    int             `json:"review_count"`
	Badge          string          `json:"badge"`
	InStock        bool            `json:"in_stock"`
	Farmer         *FarmerSummary  `json:"farmer,omitempty"`
	FarmerUsername string          `json:"farmer_username,omitempty"`
}

// ImageURL returns the product image or an empty string.
func (p *Product) ImageURL() string {
	if p == nil || p.Image == nil {
		return ""
	}
	return *p.Image
}

// CartItem is one line of the server cart.
type CartItem struct {
	ID               int             `json:"id"`
	Product          *Product        `json:"product"`
	InventoryProduct *Product        `json:"inventory_product"`
	Quantity         int             `json:"quantity"`
	Note             string          `json:"note"`
	TotalPrice       decimal.Decimal `json:"total_price"`
}

// Item returns whichever product the line refers to.
func (c *CartItem) Item() *Product {
	if c.Product != nil {
		return c.Product
	}
	return c.InventoryProduct
}

// Cart is the body of GET /api/cart/.
type Cart struct {
	ID         int             `json:"id"`
	Items      []*CartItem     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// AddCartItemRequest adds a product (or inventory product) to the cart.
type AddCartItemRequest struct {
	ProductID          int `json:"product_id,omitempty"`
	InventoryProductID int `json:"inventory_product_id,omitempty"`
	Quantity           int `json:"quantity"`
}

// CartItemPatch updates quantity and/or note of a cart line.
type CartItemPatch struct {
	Quantity *int    `json:"quantity,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// OrderStatus is owned by the backend; the storefront only requests
// cancellation (customers) or fulfilment steps (farmers).
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// FarmerDetails is attached to order items for display.
type FarmerDetails struct {
	ID             int     `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	FarmName       string  `json:"farm_name"`
	Phone          string  `json:"phone"`
	ProfilePicture *string `json:"profile_picture"`
	Province       *string `json:"province"`
}

// OrderItem is a line of an order. Farmers see these individually through
// /api/farmer-order-items/.
type OrderItem struct {
	ID               int             `json:"id"`
	Product          *Product        `json:"product"`
	InventoryProduct *Product        `json:"inventory_product"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	Status           OrderStatus     `json:"status"`
	Note             string          `json:"note"`
	CreatedAt        string          `json:"created_at"`
	Customer         json.RawMessage `json:"customer,omitempty"`
	OrderStatus      OrderStatus     `json:"order_status,omitempty"`
	FarmerDetails    *FarmerDetails  `json:"farmer_details"`
}

// Item returns whichever product the line refers to.
func (o *OrderItem) Item() *Product {
	if o.Product != nil {
		return o.Product
	}
	return o.InventoryProduct
}

// Order is a placed order.
type Order struct {
	ID              int             `json:"id"`
	Customer        string          `json:"customer"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	ShippingAddress string          `json:"shipping_address"`
	Note            string          `json:"note"`
	Items           []*OrderItem    `json:"items"`
}

// OrderLine is one line of an order placement request.
type OrderLine struct {
	ProductID          int    `json:"product_id,omitempty"`
	FarmerID           int    `json:"farmer_id,omitempty"`
	InventoryProductID int    `json:"inventory_product_id,omitempty"`
	Quantity           int    `json:"quantity"`
	Note               string `json:"note"`
}

// OrderRequest is the body of POST /api/orders/.
type OrderRequest struct {
	Items           []OrderLine `json:"items"`
	ShippingAddress string      `json:"shipping_address"`
	Note            string      `json:"note"`
}

// ReviewKind selects between farmer product and inventory reviews.
type ReviewKind string

const (
	ProductReviews   ReviewKind = "product-reviews"
	InventoryReviews ReviewKind = "inventory-reviews"
)

// Review is a product review with its reaction counters.
type Review struct {
	ID               int     `json:"id"`
	Product          int     `json:"product"`
	User             int     `json:"user"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	UserProfileImage *string `json:"user_profile_image"`
	Rating           int     `json:"rating"`
	Review           string  `json:"review"`
	Image            *string `json:"image"`
	Date             string  `json:"date"`
	Likes            int     `json:"likes"`
	Dislikes         int     `json:"dislikes"`
	UserLiked        bool    `json:"user_liked"`
	UserDisliked     bool    `json:"user_disliked"`
}

// ReviewInput is the multipart body for creating or editing a review.
type ReviewInput struct {
	ProductID int
	Rating    int
	Review    string
	Image     *Upload
}

// Reaction is a review sub-action.
type Reaction string

const (
	Like    Reaction = "like"
	Dislike Reaction = "dislike"
	Unlike  Reaction = "unlike"
)

// Participant is a user inside a conversation or message.
type Participant struct {
	ID             int      `json:"id"`
	Username       string   `json:"username"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	ProfilePicture *string  `json:"profile_picture"`
	UserType       UserType `json:"user_type"`
}

// MessageProduct is the trimmed product attached to messages.
type MessageProduct struct {
	ID     int             `json:"id"`
	Name   string          `json:"name"`
	Image  *string         `json:"image"`
	Price  decimal.Decimal `json:"price"`
	Farmer int             `json:"farmer"`
}

// Message is one chat message.
type Message struct {
	ID        int             `json:"id"`
	Sender    *Participant    `json:"sender"`
	Receiver  *Participant    `json:"receiver"`
	Product   *MessageProduct `json:"product"`
	Subject   string          `json:"subject"`
	Content   string          `json:"content"`
	IsRead    bool            `json:"is_read"`
	CreatedAt string          `json:"created_at"`
}

// Conversation is an inbox entry.
type Conversation struct {
	ID               int             `json:"id"`
	OtherParticipant *Participant    `json:"other_participant"`
	LastMessage      *Message        `json:"last_message"`
	UnreadCount      int             `json:"unread_count"`
	Product          *MessageProduct `json:"product"`
	UpdatedAt        string          `json:"updated_at"`
}

// ConversationSet names the conversation listings the backend exposes.
type ConversationSet string

const (
	WithFarmer       ConversationSet = "with_farmer"
	WithCustomer     ConversationSet = "with_customer"
	AllConversations ConversationSet = "all_conversations"
)

// SendMessageRequest is the body of POST /api/messages/send_message/.
type SendMessageRequest struct {
	ReceiverID int    `json:"receiver_id"`
	Content    string `json:"content"`
	Subject    string `json:"subject"`
	ProductID  *int   `json:"product_id"`
}

// Notification is a farmer/customer notification.
type Notification struct {
	ID        int    `json:"id"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// FarmerEntry is an entry of the farmers directory.
type FarmerEntry struct {
	User              User     `json:"user"`
	JoinDate          string   `json:"join_date"`
	Phone             string   `json:"phone"`
	Province          string   `json:"province"`
	Address           string   `json:"address"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	FarmName          string   `json:"farm_name"`
	FarmSize          string   `json:"farm_size"`
	FarmingExperience string   `json:"farming_experience"`
	CropTypes         string   `json:"crop_types"`
	ProfilePicture    *string  `json:"profile_picture"`
	Distance          *float64 `json:"distance"`
}

// Stats are the homepage counters.
type Stats struct {
	Farmers   int `json:"farmers"`
	Customers int `json:"customers"`
}

// LoginResponse is the body of a successful POST /api/login/.
type LoginResponse struct {
	Token    string   `json:"token"`
	UserType UserType `json:"userType"`
}

// RegisterRequest carries the role-specific registration form.
type RegisterRequest struct {
	UserType  UserType
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Province  string
	Address   string
	Latitude  string
	Longitude string

	FarmName          string
	FarmSize          string
	FarmingExperience string
	CropTypes         string

	BusinessName string
	BusinessType string

	ProfilePicture *Upload
}

// Upload is a file part for multipart requests.
type Upload struct {
	Filename string
	Data     []byte
}
