package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Field names of an operation entry as returned by the bank.
const (
	FieldLabel  = "libelleOperation"
	FieldDate   = "dateOperation"
	FieldAmount = "montant"
)

// ErrMissingField is returned when an entry lacks one of the three required fields.
var ErrMissingField = errors.New("missing required field")

// Operation is one bank transaction. It keeps the entry it was decoded from
// byte for byte, so fields the bank adds later survive a round trip.
// An Operation is never mutated after NewOperation returns.
type Operation struct {
	label  string
	date   civil.Date
	amount decimal.Decimal
	raw    json.RawMessage
}

// NewOperation decodes one raw entry.
func NewOperation(raw json.RawMessage) (*Operation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("NewOperation: decode entry: %w", err)
	}

	label, err := stringField(fields, FieldLabel)
	if err != nil {
		return nil, fmt.Errorf("NewOperation: %w", err)
	}

	dateRaw, ok := fields[FieldDate]
	if !ok || isNull(dateRaw) {
		return nil, fmt.Errorf("NewOperation: %w %q", ErrMissingField, FieldDate)
	}
	date, err := parseOperationDate(dateRaw)
	if err != nil {
		return nil, fmt.Errorf("NewOperation: field %q: %w", FieldDate, err)
	}

	amountRaw, ok := fields[FieldAmount]
	if !ok || isNull(amountRaw) {
		return nil, fmt.Errorf("NewOperation: %w %q", ErrMissingField, FieldAmount)
	}
	amount, err := parseAmount(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("NewOperation: field %q: %w", FieldAmount, err)
	}

	return &Operation{
		label:  label,
		date:   date,
		amount: amount,
		raw:    append(json.RawMessage(nil), raw...),
	}, nil
}

// Label returns the operation description.
func (o *Operation) Label() string { return o.label }

// Date returns the operation date.
func (o *Operation) Date() civil.Date { return o.date }

// Amount returns the signed amount; debits are negative.
func (o *Operation) Amount() decimal.Decimal { return o.amount }

// Raw returns a copy of the original entry.
func (o *Operation) Raw() json.RawMessage {
	return append(json.RawMessage(nil), o.raw...)
}

// Fields decodes the original entry into a generic map. Numbers are kept
// as json.Number so no precision is lost.
func (o *Operation) Fields() (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(o.raw))
	dec.UseNumber()
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("Fields: %w", err)
	}
	return out, nil
}

// JSON returns the original entry as text.
func (o *Operation) JSON() string {
	return string(o.raw)
}

// MarshalJSON emits the original entry unchanged.
func (o *Operation) MarshalJSON() ([]byte, error) {
	return o.Raw(), nil
}

func (o *Operation) String() string {
	return fmt.Sprintf("Operation[date=%s, libellé=%s, montant=%s]", o.date, o.label, o.amount)
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	v, ok := fields[key]
	if !ok || isNull(v) {
		return "", fmt.Errorf("%w %q", ErrMissingField, key)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("field %q is not a string: %w", key, err)
	}
	return s, nil
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}

// Date layouts seen in bank payloads, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"Jan 2, 2006 3:04:05 PM",
	"02/01/2006",
}

// parseOperationDate accepts either a date string or epoch milliseconds.
// Epoch values are read in local time, which is how the bank produces them.
func parseOperationDate(raw json.RawMessage) (civil.Date, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return civil.DateOf(t), nil
			}
		}
		return civil.Date{}, fmt.Errorf("unrecognized date %q", s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return civil.Date{}, fmt.Errorf("date is neither string nor number: %s", raw)
	}
	ms, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return civil.Date{}, fmt.Errorf("invalid epoch milliseconds %s: %w", n, err)
		}
		ms = int64(f)
	}
	return civil.DateOf(time.UnixMilli(ms).In(time.Local)), nil
}

// parseAmount reads a JSON number (or a numeric string, comma decimals allowed)
// straight into a decimal without going through float64.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return decimal.NewFromString(n.String())
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount is neither number nor string: %s", raw)
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}
