package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type KV struct {
	Key   string
	Value any
}

// ExtendObject appends members to a serialized JSON object without
// re-encoding the existing members, so the partner's key order survives.
func ExtendObject(obj []byte, pairs ...KV) ([]byte, error) {
	trimmed := bytes.TrimSpace(obj)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return nil, fmt.Errorf("not a JSON object")
	}
	if len(pairs) == 0 {
		return trimmed, nil
	}

	empty := len(bytes.TrimSpace(trimmed[1:len(trimmed)-1])) == 0

	var buf bytes.Buffer
	buf.Write(trimmed[:len(trimmed)-1])
	for i, p := range pairs {
		if i > 0 || !empty {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
