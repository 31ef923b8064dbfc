package baselinker

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Order is a single order as returned by the Baselinker getOrders method.
// Fields the sync engine does not read are intentionally omitted.
type Order struct {
	OrderID          int               `json:"order_id"`
	StatusID         FlexInt           `json:"order_status_id"`
	DateAdd          int64             `json:"date_add"`
	DateConfirmed    int64             `json:"date_confirmed"`
	DateInStatus     int64             `json:"date_in_status"`
	DateStatusChange int64             `json:"date_status_change"`
	UserLogin        string            `json:"user_login"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	DeliveryFullname string            `json:"delivery_fullname"`
	InvoiceFullname  string            `json:"invoice_fullname"`
	DeliveryAddress  string            `json:"delivery_address"`
	DeliveryPostcode string            `json:"delivery_postcode"`
	DeliveryCity     string            `json:"delivery_city"`
	AdminComments    string            `json:"admin_comments"`
	CustomExtraField map[string]string `json:"custom_extra_fields"`
	Products         []OrderProduct    `json:"products"`
}

// OrderProduct is one order line. Quantity is per line; the production
// engine expands it into one piece per unit.
type OrderProduct struct {
	OrderProductID FlexString `json:"order_product_id"`
	Name           string     `json:"name"`
	Quantity       FlexInt    `json:"quantity"`
	PriceBrutto    float64    `json:"price_brutto"`
	TaxRate        float64    `json:"tax_rate"`
}

// StatusInfo is one entry of the getOrderStatusList response.
type StatusInfo struct {
	ID   FlexInt `json:"id"`
	Name string  `json:"name"`
}

// DeadlineBase returns the timestamp used as the base for deadline
// computation: date_in_status, then date_status_change, then date_add.
// The zero time is returned when none is set.
func (o *Order) DeadlineBase() time.Time {
	for _, ts := range []int64{o.DateInStatus, o.DateStatusChange, o.DateAdd} {
		if ts > 0 {
			return time.Unix(ts, 0)
		}
	}
	return time.Time{}
}

// PaymentDate returns the best available payment timestamp:
// date_in_status, then date_confirmed, then date_add.
func (o *Order) PaymentDate() time.Time {
	for _, ts := range []int64{o.DateInStatus, o.DateConfirmed, o.DateAdd} {
		if ts > 0 {
			return time.Unix(ts, 0)
		}
	}
	return time.Time{}
}

// FlexInt decodes a JSON number or a numeric string. The Baselinker API is
// not consistent about numeric types across accounts, so quantities and ids
// arrive either way.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	s := string(data)
	if s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		*f = 0
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexInt(int(v))
	return nil
}

// Int returns the value as a plain int.
func (f FlexInt) Int() int { return int(f) }

// FlexString decodes a JSON string or number into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(string(data))
	return nil
}

// String returns the value as a plain string.
func (f FlexString) String() string { return string(f) }
