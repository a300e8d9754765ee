package tools

import (
	"encoding/json"
	"fmt"
)

// Known tool names.
const (
	ToolSearchProducts = "search_products"
	ToolAddToCart      = "add_to_cart"
)

// Call is a raw tool invocation as received from the AI session.
type Call struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// SearchArgs are the arguments of a search_products call.
type SearchArgs struct {
	Query string `json:"query"`
}

// CartArgs are the arguments of an add_to_cart call.
type CartArgs struct {
	ProductID   string  `json:"productId"`
	Quantity    float64 `json:"quantity"`
	ProductName string  `json:"productName,omitempty"`
}

// Invocation is the decoded, tagged form of a Call: exactly one of the
// argument fields is set, or Unknown is true for forward compatibility
// with tools this gateway does not implement.
type Invocation struct {
	ID      string
	Name    string
	Search  *SearchArgs
	Cart    *CartArgs
	Unknown bool
}

// Decode validates a raw call and resolves it to a typed invocation.
func Decode(c Call) (Invocation, error) {
	inv := Invocation{ID: c.ID, Name: c.Name}
	if c.Name == "" {
		return inv, fmt.Errorf("tool call missing name")
	}

	switch c.Name {
	case ToolSearchProducts:
		var args SearchArgs
		if len(c.Args) > 0 {
			if err := json.Unmarshal(c.Args, &args); err != nil {
				return inv, fmt.Errorf("invalid search_products args: %w", err)
			}
		}
		inv.Search = &args

	case ToolAddToCart:
		var args CartArgs
		if len(c.Args) > 0 {
			if err := json.Unmarshal(c.Args, &args); err != nil {
				return inv, fmt.Errorf("invalid add_to_cart args: %w", err)
			}
		}
		inv.Cart = &args

	default:
		inv.Unknown = true
	}

	return inv, nil
}

// Response is the structured result returned to the AI session. Every
// dispatched call produces exactly one.
type Response struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Response ResponseBody `json:"response"`
}

// ResponseBody wraps the tool result payload.
type ResponseBody struct {
	Result interface{} `json:"result"`
}

// ProductView is the projection of a catalog product shown to the AI
// and the UI.
type ProductView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int    `json:"price"`
	IsAvailable bool   `json:"isAvailable"`
	Image       string `json:"image,omitempty"`
}

// SearchResult is the result payload of a search_products call.
type SearchResult struct {
	Products []ProductView `json:"products"`
	Message  string        `json:"message,omitempty"`
}

// ActionResult is the result payload of a cart mutation or a failed call.
type ActionResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Quantity int    `json:"quantity,omitempty"`
}

// UnknownToolResult is returned for tools this gateway does not know.
type UnknownToolResult struct {
	Error string `json:"error"`
}
