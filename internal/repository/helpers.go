package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forgo/staffhub/internal/database"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// unwrapRecord digs the first record out of a QueryOne/Query response
func unwrapRecord(result interface{}) (map[string]interface{}, error) {
	if result == nil {
		return nil, database.ErrNotFound
	}

	if resp, ok := result.(map[string]interface{}); ok {
		if status, ok := resp["status"].(string); ok && status == "OK" {
			if resultData, ok := resp["result"].([]interface{}); ok {
				if len(resultData) == 0 {
					return nil, database.ErrNotFound
				}
				result = resultData[0]
			}
		}
	}

	if arr, ok := result.([]interface{}); ok {
		if len(arr) == 0 {
			return nil, database.ErrNotFound
		}
		result = arr[0]
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}
	return data, nil
}

// decodeRecord converts a SurrealDB record map into T via a JSON round-trip.
// Record IDs and datetimes are normalized first so json tags line up with field names.
func decodeRecord[T any](result interface{}) (*T, error) {
	data, err := unwrapRecord(result)
	if err != nil {
		return nil, err
	}

	normalized, _ := normalizeValue(data).(map[string]interface{})
	jsonBytes, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(jsonBytes, &out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", out, err)
	}
	return &out, nil
}

// decodeRows decodes every record of the statement at index stmt
func decodeRows[T any](results []interface{}, stmt int) ([]*T, error) {
	rows := statementRows(results, stmt)
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		item, err := decodeRecord[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// statementRows returns the result array of statement stmt
func statementRows(results []interface{}, stmt int) []interface{} {
	if stmt >= len(results) {
		return nil
	}
	if resp, ok := results[stmt].(map[string]interface{}); ok {
		if rows, ok := resp["result"].([]interface{}); ok {
			return rows
		}
		if resp["result"] != nil {
			return []interface{}{resp["result"]}
		}
		return nil
	}
	return nil
}

// lastStatementRows returns rows of the final statement (after LET or BEGIN/COMMIT noise)
func lastStatementRows(results []interface{}) []interface{} {
	for i := len(results) - 1; i >= 0; i-- {
		if rows := statementRows(results, i); len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// normalizeValue rewrites driver-specific types into JSON-friendly values
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case models.RecordID, *models.RecordID:
		return convertSurrealID(t)
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t == nil {
			return nil
		}
		return t.Time
	}
	return v
}

// convertSurrealID converts a SurrealDB ID (which may be a complex object) to a string
func convertSurrealID(id interface{}) string {
	if str, ok := id.(string); ok {
		return str
	}
	if rid, ok := id.(models.RecordID); ok {
		return fmt.Sprintf("%s:%v", rid.Table, rid.ID)
	}
	if rid, ok := id.(*models.RecordID); ok && rid != nil {
		return fmt.Sprintf("%s:%v", rid.Table, rid.ID)
	}

	// {"tb": "job", "id": {"String": "abc"}}
	if m, ok := id.(map[string]interface{}); ok {
		tb, _ := m["tb"].(string)
		idPart := ""
		if idVal, ok := m["id"]; ok {
			idPart = extractIDValue(idVal)
		}
		if tb != "" && idPart != "" {
			return tb + ":" + idPart
		}
		if idPart != "" {
			return idPart
		}
	}

	return fmt.Sprintf("%v", id)
}

func extractIDValue(val interface{}) string {
	if str, ok := val.(string); ok {
		return str
	}
	if m, ok := val.(map[string]interface{}); ok {
		if s, ok := m["String"].(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", val)
}

type createdRecord struct {
	ID        string
	CreatedOn time.Time
	UpdatedOn time.Time
}

// extractCreatedRecord reads id and timestamps from a CREATE response
func extractCreatedRecord(result []interface{}) (*createdRecord, error) {
	rows := lastStatementRows(result)
	if len(rows) == 0 {
		return nil, errors.New("no result returned")
	}
	data, ok := rows[0].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}

	record := &createdRecord{}
	if id, ok := data["id"]; ok {
		record.ID = convertSurrealID(id)
	}
	if t := getTime(data, "created_on"); t != nil {
		record.CreatedOn = *t
	}
	if t := getTime(data, "updated_on"); t != nil {
		record.UpdatedOn = *t
	}
	return record, nil
}

// extractCount reads {count: n} from the first statement of a GROUP ALL count query
func extractCount(results []interface{}) int {
	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return 0
	}
	if data, ok := rows[0].(map[string]interface{}); ok {
		return getInt(data, "count")
	}
	return 0
}

// extractIDs collects the id field of every row of the given statement
func extractIDs(results []interface{}, stmt int) []string {
	rows := statementRows(results, stmt)
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if data, ok := row.(map[string]interface{}); ok {
			if id, ok := data["id"]; ok {
				ids = append(ids, convertSurrealID(id))
			}
		}
	}
	return ids
}

// getString extracts a string value from a map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getInt extracts an int value from a map
func getInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case float32:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	}
	return 0
}

// getTime extracts a time value from a map
func getTime(m map[string]interface{}, key string) *time.Time {
	switch v := m[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &t
		}
	case time.Time:
		return &v
	case models.CustomDateTime:
		t := v.Time
		return &t
	case *models.CustomDateTime:
		if v != nil {
			t := v.Time
			return &t
		}
	}
	return nil
}

// timeVar formats a time for a <datetime>$var cast
func timeVar(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// optionalTimeVar formats an optional time, nil when unset
func optionalTimeVar(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return timeVar(*t)
}

// ptrToNone converts a string pointer to its value or nil for NONE checks
func ptrToNone(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// pageVars adds limit/offset to query vars
func pageVars(vars map[string]interface{}, limit, offset int) map[string]interface{} {
	if offset < 0 {
		offset = 0
	}
	vars["limit"] = limit
	vars["offset"] = offset
	return vars
}

// fieldSet builds CONTENT objects and SET clauses without writing NULL for absent optionals
type fieldSet struct {
	fields []string
	vars   map[string]interface{}
}

func newFieldSet() *fieldSet {
	return &fieldSet{vars: make(map[string]interface{})}
}

func (f *fieldSet) set(key string, val interface{}) *fieldSet {
	f.fields = append(f.fields, key+"\x00$"+key)
	f.vars[key] = val
	return f
}

func (f *fieldSet) expr(key, expr string) *fieldSet {
	f.fields = append(f.fields, key+"\x00"+expr)
	return f
}

func (f *fieldSet) opt(key string, val *string) *fieldSet {
	if val != nil {
		f.set(key, *val)
	}
	return f
}

func (f *fieldSet) datetime(key string, t time.Time) *fieldSet {
	f.fields = append(f.fields, key+"\x00<datetime>$"+key)
	f.vars[key] = timeVar(t)
	return f
}

func (f *fieldSet) optDatetime(key string, t *time.Time) *fieldSet {
	if t != nil {
		f.datetime(key, *t)
	}
	return f
}

// object renders "{ a: $a, b: expr }"
func (f *fieldSet) object() string {
	return "{ " + f.join(": ") + " }"
}

// assignments renders "a = $a, b = expr"
func (f *fieldSet) assignments() string {
	return f.join(" = ")
}

func (f *fieldSet) join(sep string) string {
	parts := make([]string, len(f.fields))
	for i, field := range f.fields {
		parts[i] = strings.Replace(field, "\x00", sep, 1)
	}
	return strings.Join(parts, ", ")
}
