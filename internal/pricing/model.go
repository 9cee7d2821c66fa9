package pricing

// CartLineItem is client-submitted and untrusted. Any price field a client
// might send never reaches this type.
type CartLineItem struct {
	ProductID  string            `json:"productId"`
	Quantity   int               `json:"quantity"`
	ColorCode  string            `json:"colorCode,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ValidatedLineItem is server-derived: UnitPrice comes from the catalog,
// never from client input.
type ValidatedLineItem struct {
	ProductID  string            `json:"productId"`
	Name       string            `json:"name"`
	Quantity   int               `json:"quantity"`
	UnitPrice  int64             `json:"unitPrice"`
	ColorCode  string            `json:"colorCode,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}
