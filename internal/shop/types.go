package shop

// Product is one catalog entry as returned by the commerce API.
type Product struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	BaseMRP       float64        `json:"base_mrp"`
	ProductImages []ProductImage `json:"product_images"`
}

// ProductImage is an image attachment on a product.
type ProductImage struct {
	Path string `json:"path"`
}

// ProductList is the search response envelope.
type ProductList struct {
	Data []Product `json:"data"`
}

// CartResult is the add-to-cart response envelope.
type CartResult struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// outOfStockMessage is the commerce API's stock-exhaustion sentinel.
// It must be matched verbatim.
const outOfStockMessage = "This item is out of stock. please try later"

// OutOfStock reports whether the cart call hit the stock-exhaustion
// sentinel.
func (r *CartResult) OutOfStock() bool {
	return r.StatusCode == 0 && r.Message == outOfStockMessage
}
