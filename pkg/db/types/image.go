package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ImageRef points at one stored object and its public URL.
type ImageRef struct {
	StorageKey string `json:"storage_key"`
	URL        string `json:"url"`
}

// Value marshals the reference into JSON for Postgres.
func (i ImageRef) Value() (driver.Value, error) {
	buf, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the reference.
func (i *ImageRef) Scan(value interface{}) error {
	raw, err := rawJSON(value)
	if err != nil {
		return fmt.Errorf("image ref: %w", err)
	}
	if raw == nil {
		*i = ImageRef{}
		return nil
	}
	return json.Unmarshal(raw, i)
}

// ImageRefList is an ordered sequence of image references persisted as JSONB.
type ImageRefList []ImageRef

// Value marshals the list into JSON for Postgres.
func (l ImageRefList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	buf, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the list.
func (l *ImageRefList) Scan(value interface{}) error {
	raw, err := rawJSON(value)
	if err != nil {
		return fmt.Errorf("image refs: %w", err)
	}
	if raw == nil {
		*l = nil
		return nil
	}
	result := make(ImageRefList, 0)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*l = result
	return nil
}

func rawJSON(value interface{}) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
