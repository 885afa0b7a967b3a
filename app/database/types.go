package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = JSONObject{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan, storing driver.Value type %T into type JSONObject", value)
	}

	var result map[string]interface{}
	err := json.Unmarshal(bytes, &result)
	*j = JSONObject(result)
	return err
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

// String returns the value stored under key, or "" when absent or not a string.
func (j JSONObject) String(key string) string {
	s, _ := j[key].(string)
	return s
}
