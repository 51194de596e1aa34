package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Metadata is the authoritative JSON document stored as <id>_metadata.json.
//
// Keys this type does not model are kept verbatim and written back on the
// next save, so documents produced by other tools survive a round trip.
type Metadata struct {
	ImageID       string
	Filename      string
	Text          string
	Prompt        string
	Description   string
	Title         string
	Tags          []string
	CreatedAt     string
	SavedAt       string
	UpdatedAt     string
	RegeneratedAt string
	Saved         bool

	extra map[string]json.RawMessage
}

// field binds a JSON key to the Metadata member that holds it.
type field struct {
	key    string
	always bool
	get    func(m *Metadata) any
	set    func(m *Metadata, raw json.RawMessage) (zero bool, err error)
}

func stringField(key string, always bool, p func(m *Metadata) *string) field {
	return field{
		key:    key,
		always: always,
		get: func(m *Metadata) any {
			if !always && *p(m) == "" {
				return nil
			}
			return *p(m)
		},
		set: func(m *Metadata, raw json.RawMessage) (bool, error) {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return false, err
			}
			*p(m) = s
			return s == "", nil
		},
	}
}

// fields lists the modelled keys in output order.
var fields = []field{
	stringField("image_id", true, func(m *Metadata) *string { return &m.ImageID }),
	stringField("filename", true, func(m *Metadata) *string { return &m.Filename }),
	stringField("text", true, func(m *Metadata) *string { return &m.Text }),
	stringField("prompt", false, func(m *Metadata) *string { return &m.Prompt }),
	stringField("description", false, func(m *Metadata) *string { return &m.Description }),
	stringField("title", false, func(m *Metadata) *string { return &m.Title }),
	{
		key: "tags",
		get: func(m *Metadata) any {
			if len(m.Tags) == 0 {
				return nil
			}
			return m.Tags
		},
		set: func(m *Metadata, raw json.RawMessage) (bool, error) {
			var tags []string
			if err := json.Unmarshal(raw, &tags); err != nil {
				return false, err
			}
			m.Tags = tags
			return len(tags) == 0, nil
		},
	},
	stringField("created_at", false, func(m *Metadata) *string { return &m.CreatedAt }),
	stringField("saved_at", false, func(m *Metadata) *string { return &m.SavedAt }),
	stringField("updated_at", false, func(m *Metadata) *string { return &m.UpdatedAt }),
	stringField("regenerated_at", false, func(m *Metadata) *string { return &m.RegeneratedAt }),
	{
		key: "saved",
		get: func(m *Metadata) any {
			if !m.Saved {
				return nil
			}
			return true
		},
		set: func(m *Metadata, raw json.RawMessage) (bool, error) {
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return false, err
			}
			m.Saved = b
			return !b, nil
		},
	},
}

// ParseMetadata decodes a metadata document. The document must be a JSON
// object; anything else is reported as ErrCorrupt.
func ParseMetadata(data []byte) (*Metadata, error) {
	m := &Metadata{}
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return m, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: document is not an object", ErrCorrupt)
	}
	*m = Metadata{}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		zero, err := f.set(m, v)
		// Values of an unexpected type, and explicit zero values, stay in
		// extra so they are written back exactly as found.
		if err == nil && !zero {
			delete(raw, f.key)
		}
	}
	if len(raw) > 0 {
		m.extra = raw
	}
	return nil
}

// MarshalJSON implements json.Marshaler. The output is compact; use Encode
// for the on-disk form.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	emitted := make(map[string]struct{}, len(fields))
	first := true
	writeKV := func(key string, value []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := marshalNoEscape(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
		emitted[key] = struct{}{}
	}

	for _, f := range fields {
		v := f.get(m)
		if v == nil {
			continue
		}
		data, err := marshalNoEscape(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.key, err)
		}
		writeKV(f.key, data)
	}

	keys := make([]string, 0, len(m.extra))
	for k := range m.extra {
		if _, ok := emitted[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeKV(k, m.extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode renders the document the way it is stored on disk: four-space
// indentation, no HTML escaping and literal unicode.
func (m *Metadata) Encode() ([]byte, error) {
	compact, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Clone returns a deep copy of m.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	if m.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(m.extra))
		for k, v := range m.extra {
			c.extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// ImageName returns the stored image file name, falling back to the creation
// default for documents that lack one.
func (m *Metadata) ImageName(id string) string {
	if m.Filename != "" {
		return m.Filename
	}
	return DefaultImageName(id)
}

// CanonicalID prefers the id recorded in the document over the id a caller
// asked for.
func (m *Metadata) CanonicalID(requested string) string {
	if m.ImageID != "" {
		return m.ImageID
	}
	return requested
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
