package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID — идентификатор, который сервер отдает то строкой, то числом.
type ID string

// UnmarshalJSON принимает как "42", так и 42.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())

	return nil
}

func (id ID) String() string {
	return string(id)
}

// Strings переводит слайс ID в слайс строк.
func Strings(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

// ScoreText — итоговый балл, который сервер отдает числом или строкой вида "7/10".
type ScoreText string

func (s *ScoreText) UnmarshalJSON(data []byte) error {
	var id ID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*s = ScoreText(id)
	return nil
}
