package events

// Topics published by the storefront core.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

// OrderCreated is the payload for TopicOrderCreated.
type OrderCreated struct {
	OrderID       string `json:"orderId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	TotalAmount   int64  `json:"totalAmount"`
	Currency      string `json:"currency"`
}

// OrderStatusChanged is the payload for TopicOrderStatusChanged.
type OrderStatusChanged struct {
	OrderID       string `json:"orderId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	OldStatus     string `json:"oldStatus"`
	NewStatus     string `json:"newStatus"`
}
