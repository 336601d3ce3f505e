package acumatica

import "encoding/json"

// Record is one raw Acumatica entity record. Every scalar field arrives
// wrapped as {"value": T}; nested detail arrays (ApplicationHistory, files,
// DocumentsToApply) arrive as plain arrays of records. The record is treated
// as an opaque blob: typed access goes through the tagged-value helpers and
// the full record is preserved verbatim alongside the projection.
type Record map[string]any

// Value unwraps the tagged {"value": T} wrapper for key. Fields lacking the
// wrapper pass through as-is; the second return is false when the key is
// absent entirely.
func (r Record) Value(key string) (any, bool) {
	raw, ok := r[key]
	if !ok {
		return nil, false
	}
	if wrapped, ok := raw.(map[string]any); ok {
		if v, ok := wrapped["value"]; ok {
			return v, true
		}
	}
	return raw, true
}

// StringValue returns the field as a string, or "" when absent or not a
// string-representable scalar.
func (r Record) StringValue(key string) string {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

// Records returns a nested detail array (e.g. ApplicationHistory) as a slice
// of records. Absent or malformed fields yield nil.
func (r Record) Records(key string) []Record {
	raw, ok := r[key]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// JSON serializes the full raw record for storage under raw_data.
func (r Record) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Credentials is the login payload for the Acumatica auth endpoint.
type Credentials struct {
	BaseURL         string
	Username        string
	Password        string
	Company         string
	Branch          string
	EndpointVersion string
}

// loginRequest is the wire shape of POST /entity/auth/login.
type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Company  string `json:"company,omitempty"`
	Branch   string `json:"branch,omitempty"`
}
