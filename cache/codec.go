package cache

import "encoding/json"

// Values are stored as JSON text so collections stay inspectable with the
// sqlite CLI and new value fields remain additive.

func marshalValue(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalValue(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
