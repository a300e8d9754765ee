// Package tools dispatches tool-call requests from the AI session to the
// commerce API and composes the spoken confirmation for each outcome.
package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/deliverit/voice-assistant/internal/observability"
	"github.com/deliverit/voice-assistant/internal/shop"
	"github.com/rs/zerolog"
)

// maxSpokenProducts limits how many matches are enumerated out loud.
const maxSpokenProducts = 2

// Commerce is the slice of the shop client the bridge needs.
type Commerce interface {
	SearchProducts(ctx context.Context, query string) (*shop.ProductList, error)
	AddToCart(ctx context.Context, productID string, quantity int, lat, long string) (*shop.CartResult, error)
}

// Outcome is the complete result of one tool invocation: the structured
// response for the AI session (always exactly one), an optional utterance
// to speak, and an optional product projection for the UI.
type Outcome struct {
	Response  Response
	Utterance string
	Products  []ProductView
}

// Bridge executes tool calls against the commerce collaborator.
type Bridge struct {
	commerce Commerce
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewBridge creates a tool-call bridge
func NewBridge(commerce Commerce, logger zerolog.Logger, metrics *observability.Metrics) *Bridge {
	if metrics == nil {
		metrics = observability.NewSessionMetrics("")
	}
	return &Bridge{
		commerce: commerce,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch executes one tool call. Tool failures never propagate: they
// become a structured failure result plus a spoken apology.
func (b *Bridge) Dispatch(ctx context.Context, call Call) Outcome {
	inv, err := Decode(call)
	if err != nil {
		b.logger.Warn().Err(err).Str("tool", call.Name).Msg("Invalid tool call")
		b.metrics.RecordToolCall(call.Name, false)
		return Outcome{
			Response:  respond(call.ID, call.Name, ActionResult{Success: false, Message: err.Error()}),
			Utterance: "Sorry, I encountered an error processing your request.",
		}
	}

	switch {
	case inv.Search != nil:
		return b.searchProducts(ctx, inv)
	case inv.Cart != nil:
		return b.addToCart(ctx, inv)
	default:
		b.logger.Warn().Str("tool", inv.Name).Msg("Unknown tool")
		b.metrics.RecordToolCall(inv.Name, false)
		return Outcome{
			Response:  respond(inv.ID, inv.Name, UnknownToolResult{Error: "Unknown tool"}),
			Utterance: "Sorry, I encountered an error processing your request.",
		}
	}
}

func (b *Bridge) searchProducts(ctx context.Context, inv Invocation) Outcome {
	query := strings.TrimSpace(inv.Search.Query)
	if query == "" {
		b.metrics.RecordToolCall(inv.Name, true)
		return Outcome{
			Response: respond(inv.ID, inv.Name, SearchResult{Products: []ProductView{}, Message: "Search query is empty"}),
		}
	}

	b.logger.Info().Str("query", query).Msg("Searching products")
	list, err := b.commerce.SearchProducts(ctx, query)
	if err != nil {
		b.logger.Error().Err(err).Str("query", query).Msg("Product search failed")
		b.metrics.RecordToolCall(inv.Name, false)
		b.metrics.RecordError("tool_execution", "tools")
		return Outcome{
			Response:  respond(inv.ID, inv.Name, ActionResult{Success: false, Message: "Product search failed"}),
			Utterance: "Sorry, something went wrong. Please try again.",
		}
	}

	available := projectAvailable(list)
	b.metrics.RecordToolCall(inv.Name, true)

	if len(available) == 0 {
		return Outcome{
			Response: respond(inv.ID, inv.Name, SearchResult{
				Products: []ProductView{},
				Message:  fmt.Sprintf("No available products found for %q", query),
			}),
			Utterance: "Sorry, I couldn't find any available products for that query.",
		}
	}

	return Outcome{
		Response:  respond(inv.ID, inv.Name, SearchResult{Products: available}),
		Utterance: searchUtterance(query, available),
		Products:  available,
	}
}

func (b *Bridge) addToCart(ctx context.Context, inv Invocation) Outcome {
	args := inv.Cart
	if args.ProductID == "" {
		b.metrics.RecordToolCall(inv.Name, false)
		return Outcome{
			Response: respond(inv.ID, inv.Name, ActionResult{Success: false, Message: "Product ID is required"}),
		}
	}

	quantity := int(math.Floor(args.Quantity))
	if quantity < 1 {
		quantity = 1
	}
	name := args.ProductName
	if name == "" {
		name = "the product"
	}

	b.logger.Info().Str("product_id", args.ProductID).Int("quantity", quantity).Msg("Adding to cart")
	result, err := b.commerce.AddToCart(ctx, args.ProductID, quantity, "", "")
	if err != nil {
		b.logger.Error().Err(err).Str("product_id", args.ProductID).Msg("Add to cart failed")
		b.metrics.RecordToolCall(inv.Name, false)
		b.metrics.RecordError("tool_execution", "tools")
		return Outcome{
			Response:  respond(inv.ID, inv.Name, ActionResult{Success: false, Message: "Failed to add to cart."}),
			Utterance: "Sorry, I couldn't add the product to your cart. Please try again.",
		}
	}

	if result.OutOfStock() {
		b.metrics.RecordToolCall(inv.Name, true)
		return Outcome{
			Response:  respond(inv.ID, inv.Name, ActionResult{Success: false, Message: "This item is out of stock."}),
			Utterance: "Sorry, this item is out of stock. Please try another product or check back later.",
		}
	}

	b.metrics.RecordToolCall(inv.Name, true)
	return Outcome{
		Response: respond(inv.ID, inv.Name, ActionResult{
			Success:  true,
			Message:  "Added to cart successfully!",
			Quantity: quantity,
		}),
		Utterance: fmt.Sprintf("I am adding %s to your cart now!", name),
	}
}

// projectAvailable maps raw products to the spoken/UI projection,
// keeping only available items and at most maxSpokenProducts of them.
func projectAvailable(list *shop.ProductList) []ProductView {
	if list == nil {
		return nil
	}

	views := make([]ProductView, 0, maxSpokenProducts)
	for _, p := range list.Data {
		if len(views) == maxSpokenProducts {
			break
		}
		view := ProductView{
			ID:          p.ID,
			Name:        p.Name,
			Price:       int(math.Round(p.BaseMRP)),
			IsAvailable: true,
		}
		if len(p.ProductImages) > 0 {
			view.Image = p.ProductImages[0].Path
		}
		views = append(views, view)
	}
	return views
}

// searchUtterance composes the spoken enumeration of matches. Price
// queries get a single-product price answer.
func searchUtterance(query string, products []ProductView) string {
	lower := strings.ToLower(query)
	if strings.Contains(lower, "price of") || strings.Contains(lower, "how much") {
		return fmt.Sprintf("The price of %s is %d rupees. Do you want to order this product?",
			products[0].Name, products[0].Price)
	}

	var b strings.Builder
	b.WriteString("Great! I found these options: ")
	for i, p := range products {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d. %s for %d rupees", i+1, p.Name, p.Price)
	}
	b.WriteString(". Which one would you like?")
	return b.String()
}

func respond(id, name string, result interface{}) Response {
	return Response{
		ID:       id,
		Name:     name,
		Response: ResponseBody{Result: result},
	}
}
