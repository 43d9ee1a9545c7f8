package sqlutil

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable column types

// ToNullUUID converts a Go UUID pointer to uuid.NullUUID
func ToNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{Valid: false}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// FromNullUUID converts uuid.NullUUID to a Go UUID pointer
func FromNullUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

// ToNullJSON marshals v into a nullable JSONB value. A nil v is NULL.
func ToNullJSON(v any) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{Valid: false}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal json column: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

// FromNullJSON unmarshals a scanned JSONB column into dst. It reports
// false and leaves dst untouched when the column was NULL.
func FromNullJSON(raw []byte, dst any) (bool, error) {
	msg := pqtype.NullRawMessage{RawMessage: raw, Valid: raw != nil}
	if !msg.Valid {
		return false, nil
	}
	if err := json.Unmarshal(msg.RawMessage, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	return true, nil
}
