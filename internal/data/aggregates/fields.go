package aggregates

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainagg "github.com/yungbote/jointbuy-backend/internal/domain/aggregates"
	"github.com/yungbote/jointbuy-backend/internal/domain/purchases"
)

// fieldUpdate is a generic field change coerced to its column type.
type fieldUpdate struct {
	column  string
	value   any
	history any
}

var fieldColumns = map[string]string{
	domainagg.FieldName:            "name",
	domainagg.FieldPicture:         "picture",
	domainagg.FieldDescription:     "description",
	domainagg.FieldCategory:        "category_id",
	domainagg.FieldPricePerUnit:    "price_per_unit",
	domainagg.FieldAddress:         "address",
	domainagg.FieldMeasurementUnit: "measurement_unit_id",
	domainagg.FieldDate:            "date",
	domainagg.FieldState:           "state",
	domainagg.FieldPaymentType:     "payment_type",
	domainagg.FieldPaymentInfo:     "payment_info",
	domainagg.FieldIsPublic:        "is_public",
}

func coerceField(op, name string, raw any) (fieldUpdate, error) {
	bad := rejectedValue(op)
	if !domainagg.ModifiableFields[name] {
		return fieldUpdate{}, rejected(op, domainagg.ReasonUnmodifiableField)
	}
	column := fieldColumns[name]

	switch name {
	case domainagg.FieldName, domainagg.FieldPicture, domainagg.FieldDescription, domainagg.FieldAddress:
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return fieldUpdate{}, bad
		}
		s = strings.TrimSpace(s)
		return fieldUpdate{column: column, value: s, history: s}, nil

	case domainagg.FieldPaymentInfo:
		if raw == nil {
			return fieldUpdate{column: column, value: "", history: ""}, nil
		}
		s, ok := raw.(string)
		if !ok {
			return fieldUpdate{}, bad
		}
		s = strings.TrimSpace(s)
		return fieldUpdate{column: column, value: s, history: s}, nil

	case domainagg.FieldCategory, domainagg.FieldMeasurementUnit:
		s, ok := raw.(string)
		if !ok {
			return fieldUpdate{}, bad
		}
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil || id == uuid.Nil {
			return fieldUpdate{}, bad
		}
		return fieldUpdate{column: column, value: id, history: id.String()}, nil

	case domainagg.FieldPricePerUnit:
		d, ok := toDecimal(raw)
		if !ok || d.IsNegative() {
			return fieldUpdate{}, bad
		}
		d = d.Round(2)
		return fieldUpdate{column: column, value: d, history: d}, nil

	case domainagg.FieldDate:
		at, ok := toTime(raw)
		if !ok {
			return fieldUpdate{}, bad
		}
		return fieldUpdate{column: column, value: at, history: at}, nil

	case domainagg.FieldState:
		n, ok := toInt(raw)
		if !ok || !purchases.PurchaseState(n).Valid() {
			return fieldUpdate{}, bad
		}
		return fieldUpdate{column: column, value: n, history: n}, nil

	case domainagg.FieldPaymentType:
		n, ok := toInt(raw)
		if !ok || !purchases.PaymentType(n).Valid() {
			return fieldUpdate{}, bad
		}
		return fieldUpdate{column: column, value: n, history: n}, nil

	case domainagg.FieldIsPublic:
		b, ok := raw.(bool)
		if !ok {
			return fieldUpdate{}, bad
		}
		return fieldUpdate{column: column, value: b, history: b}, nil
	}
	return fieldUpdate{}, rejected(op, domainagg.ReasonUnmodifiableField)
}

func rejectedValue(op string) error {
	return domainagg.NewError(domainagg.CodeValidation, op, domainagg.ReasonInvalidValue, nil)
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	}
	return decimal.Zero, false
}

func toTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), !v.IsZero()
	case string:
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, false
		}
		return at.UTC(), true
	}
	return time.Time{}, false
}
