package purchases

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// HistoryValue wraps the recorded value so the stored document is always a
// JSON object. Bare scalars in a JSON column come back as numbers on sqlite.
type HistoryValue struct {
	Value json.RawMessage `json:"value"`
}

// HistoryEntry is one append-only audit record. Rows are inserted by the aggregate and never updated.
type HistoryEntry struct {
	ID         uuid.UUID                        `gorm:"type:uuid;primaryKey"`
	PurchaseID uuid.UUID                        `gorm:"type:uuid;not null;uniqueIndex:idx_jp_history_seq,priority:1"`
	Seq        int                              `gorm:"column:seq;not null;uniqueIndex:idx_jp_history_seq,priority:2"`
	Parameter  string                           `gorm:"column:parameter;not null"`
	Stored     datatypes.JSONType[HistoryValue] `gorm:"column:value"`
	Date       time.Time                        `gorm:"column:date;not null"`
}

func (HistoryEntry) TableName() string { return "joint_purchase_history" }

func NewHistoryEntry(purchaseID uuid.UUID, seq int, parameter string, value any, at time.Time) (HistoryEntry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return HistoryEntry{}, err
	}
	return HistoryEntry{
		ID:         uuid.New(),
		PurchaseID: purchaseID,
		Seq:        seq,
		Parameter:  parameter,
		Stored:     datatypes.NewJSONType(HistoryValue{Value: raw}),
		Date:       at.UTC(),
	}, nil
}

// RawValue returns the recorded value as raw JSON.
func (h HistoryEntry) RawValue() json.RawMessage {
	return h.Stored.Data().Value
}

func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	value := h.RawValue()
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	return json.Marshal(struct {
		Seq       int             `json:"seq"`
		Parameter string          `json:"parameter"`
		Value     json.RawMessage `json:"value"`
		Date      time.Time       `json:"date"`
	}{h.Seq, h.Parameter, value, h.Date})
}
