package rowstore

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Row is one table row keyed by raw field name ("field_1234")
type Row struct {
	ID     int64
	Fields map[string]json.RawMessage
}

// UnmarshalJSON splits the row id from its cells
func (r *Row) UnmarshalJSON(data []byte) error {
	var cells map[string]json.RawMessage
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	if raw, ok := cells["id"]; ok {
		if err := json.Unmarshal(raw, &r.ID); err != nil {
			return fmt.Errorf("invalid row id: %w", err)
		}
		delete(cells, "id")
	}
	r.Fields = cells
	return nil
}

// Field returns the parsed value of a field id
func (r Row) Field(id string) FieldValue {
	if id == "" {
		return FieldValue{}
	}
	return ParseField(r.Fields[FieldKey(id)])
}

// FieldKey converts a configured field id to the API key. Ids that already
// carry the prefix are returned unchanged.
func FieldKey(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "field_") {
		return id
	}
	return "field_" + id
}

// APIError is a non-2xx response from the row store
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Error API Baserow (%d): %s", e.Status, e.Detail)
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) != nil {
		// Validation errors carry a structured detail
		detail = string(payload.Detail)
	}
	switch {
	case detail != "":
		apiErr.Detail = detail
	case payload.Error != "":
		apiErr.Detail = payload.Error
	}
	return apiErr
}
