package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const cartItemIDField = "id"

var errCartItemNotObject = errors.New("cart item must be a JSON object")

// CartItem is an opaque cart line as returned by the cart service. Only the id is
// interpreted; every other field is kept as raw JSON and written back unchanged.
type CartItem struct {
	id     string
	fields map[string]json.RawMessage
}

// NewCartItem builds an item from loose fields. An "id" entry, if present, becomes the item id.
func NewCartItem(fields map[string]any) (CartItem, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return CartItem{}, fmt.Errorf("encode cart item: %w", err)
	}
	var item CartItem
	if err := item.UnmarshalJSON(raw); err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// ID returns the normalized identifier. Numeric and string ids share one textual form.
func (c CartItem) ID() string {
	return c.id
}

// HasID reports whether the item carries a non-empty id.
func (c CartItem) HasID() bool {
	return c.id != ""
}

// SameID reports whether both items carry the same non-empty id.
func (c CartItem) SameID(other CartItem) bool {
	return c.id != "" && c.id == other.id
}

// WithID returns a copy whose id is replaced by the supplied value. Integer ids
// are written as JSON numbers, anything else as a string.
func (c CartItem) WithID(id string) CartItem {
	out := c.Clone()
	out.id = strings.TrimSpace(id)
	if out.fields == nil {
		out.fields = map[string]json.RawMessage{}
	}
	if isIntegerLiteral(out.id) {
		out.fields[cartItemIDField] = json.RawMessage(out.id)
		return out
	}
	encoded, _ := json.Marshal(out.id)
	out.fields[cartItemIDField] = encoded
	return out
}

// Field returns the raw JSON for a top-level field.
func (c CartItem) Field(name string) (json.RawMessage, bool) {
	raw, ok := c.fields[name]
	return raw, ok
}

// Len returns the number of top-level fields, id included.
func (c CartItem) Len() int {
	return len(c.fields)
}

// Clone returns a deep copy so callers cannot mutate held state.
func (c CartItem) Clone() CartItem {
	out := CartItem{id: c.id}
	if c.fields == nil {
		return out
	}
	out.fields = make(map[string]json.RawMessage, len(c.fields))
	for k, v := range c.fields {
		dup := make(json.RawMessage, len(v))
		copy(dup, v)
		out.fields[k] = dup
	}
	return out
}

// Quantity returns the "quantity" field truncated to a whole number. Numeric
// strings and fractional values are accepted; negatives count as 0. An absent or
// unparseable quantity counts as 1.
func (c CartItem) Quantity() int {
	raw, ok := c.fields["quantity"]
	if !ok {
		return 1
	}
	qty, ok := decodeDecimal(raw)
	if !ok {
		return 1
	}
	if qty.IsNegative() {
		return 0
	}
	return int(qty.IntPart())
}

// UnitPrice reads "price" or, failing that, "product.price".
func (c CartItem) UnitPrice() (decimal.Decimal, bool) {
	if raw, ok := c.fields["price"]; ok {
		if price, ok := decodeDecimal(raw); ok {
			return price, true
		}
	}
	raw, ok := c.fields["product"]
	if !ok {
		return decimal.Zero, false
	}
	var product struct {
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(raw, &product); err != nil || product.Price == nil {
		return decimal.Zero, false
	}
	return decodeDecimal(product.Price)
}

// LineTotal is UnitPrice * Quantity, or zero when the item has no price.
func (c CartItem) LineTotal() decimal.Decimal {
	price, ok := c.UnitPrice()
	if !ok {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(c.Quantity())))
}

func (c CartItem) MarshalJSON() ([]byte, error) {
	if len(c.fields) == 0 {
		if c.id == "" {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]string{cartItemIDField: c.id})
	}
	return json.Marshal(c.fields)
}

func (c *CartItem) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errCartItemNotObject
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return fmt.Errorf("decode cart item: %w", err)
	}
	id, err := normalizeID(fields[cartItemIDField])
	if err != nil {
		return err
	}
	c.id = id
	c.fields = fields
	return nil
}

func normalizeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode cart item id: %w", err)
		}
		return strings.TrimSpace(s), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("cart item id must be a string or number: %w", err)
		}
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return n.String(), nil
	}
}

// isIntegerLiteral reports whether s is a JSON integer in canonical form, so
// "42" and "-7" qualify but "007", "1e3" and "4.0" do not.
func isIntegerLiteral(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != "-0"
}

func decodeDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Zero, false
	}
	return d, true
}
