package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// Key computes a deterministic SHA-256 cache key from the task id and the
// task input. Identical (task, input) pairs always collide; any difference
// in either produces a different key. The input is serialised as canonical
// JSON (encoding/json sorts map keys), so map iteration order cannot leak
// into the key.
func Key(taskID string, input any) string {
	h := sha256.New()

	h.Write([]byte(taskID))
	h.Write([]byte{0}) // separator

	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			// Unserialisable inputs degrade to their Go syntax representation.
			data = []byte(fmt.Sprintf("%#v", input))
		}
		h.Write(data)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
