package nibo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
)

// extractFileID probes an upload response for the file id. The API
// returns it under varying key names, sometimes nested one or more
// levels down.
func extractFileID(resp any) string {
	m, ok := resp.(map[string]any)
	if !ok {
		return ""
	}

	for _, key := range []string{"fileId", "FileId", "id", "Id", "ID"} {
		if v, ok := m[key]; ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}

	// Sometimes the id hides inside a nested object.
	for _, v := range m {
		if nested, ok := v.(map[string]any); ok {
			if id := extractFileID(nested); id != "" {
				return id
			}
		}
	}

	return ""
}

// decodeScheduleItems accepts both the OData envelope ({"items": [...]})
// and a bare JSON array.
func decodeScheduleItems(body []byte) ([]map[string]any, error) {
	var envelope struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Items != nil {
		return envelope.Items, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	return nil, fmt.Errorf("unrecognized schedule response shape: %s", truncate(body))
}

// normalizeSchedule maps one raw schedule item onto the canonical
// shape. Unknown or malformed fields are left zero; the matcher treats
// absences as "rule does not fire", never as an error.
func normalizeSchedule(raw map[string]any) matcher.Schedule {
	s := matcher.Schedule{
		ID:          stringField(raw, "scheduleId", "ScheduleId", "id", "Id", "ID"),
		Description: stringField(raw, "description", "Description", "descricao"),
		DueDate:     timeField(raw, "dueDate", "DueDate", "dueOn", "date"),
		Value:       floatField(raw, "value", "Value", "amount", "Amount", "totalValue"),
	}

	// Stakeholder comes either as a nested object or as flat fields
	// named after the counterparty role.
	if sh := subMap(raw, "stakeholder", "Stakeholder", "supplier", "client"); sh != nil {
		s.StakeholderID = stringField(sh, "id", "Id", "ID", "stakeholderId")
		s.StakeholderName = stringField(sh, "name", "Name")
	}
	if s.StakeholderID == "" {
		s.StakeholderID = stringField(raw, "stakeholderId", "StakeholderId", "supplierId", "clientId")
	}
	if s.StakeholderName == "" {
		s.StakeholderName = stringField(raw, "stakeholderName", "StakeholderName", "supplierName", "clientName")
	}

	return s
}

// buildFilter assembles the OData $filter expression for a search
func buildFilter(params SearchParams) string {
	var clauses []string

	if params.OpenOnly {
		clauses = append(clauses, "isPaid eq false")
	}
	if !params.DueAfter.IsZero() {
		clauses = append(clauses, fmt.Sprintf("dueDate ge %s", params.DueAfter.Format("2006-01-02")))
	}
	if !params.DueBefore.IsZero() {
		clauses = append(clauses, fmt.Sprintf("dueDate le %s", params.DueBefore.Format("2006-01-02")))
	}
	if params.Description != "" {
		escaped := strings.ReplaceAll(params.Description, "'", "''")
		clauses = append(clauses, fmt.Sprintf("contains(description,'%s')", escaped))
	}
	if params.MinValue > 0 {
		clauses = append(clauses, fmt.Sprintf("value ge %g", params.MinValue))
	}
	if params.MaxValue > 0 {
		clauses = append(clauses, fmt.Sprintf("value le %g", params.MaxValue))
	}

	return strings.Join(clauses, " and ")
}

// stringField returns the first present key rendered as a string
func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// floatField returns the first present key as a float64, accepting
// numbers and numeric strings
func floatField(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// timeField returns the first present key parsed as a timestamp
func timeField(m map[string]any, keys ...string) time.Time {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// subMap returns the first present key that holds a JSON object
func subMap(m map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if nested, ok := v.(map[string]any); ok {
				return nested
			}
		}
	}
	return nil
}

// asString renders scalar JSON values as identifiers
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers used as ids; render without exponent
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
