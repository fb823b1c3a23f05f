package testutil

import "encoding/json"

// ChatCompletionBody returns a chat completions response body carrying
// the given content, in the dialect both provider kinds serve.
func ChatCompletionBody(model, content string) []byte {
	resp := map[string]any{
		"id":    "chatcmpl-test123",
		"model": model,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     42,
			"completion_tokens": 7,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

// ChatErrorBody returns a chat completions error response body.
func ChatErrorBody(message string) []byte {
	resp := map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    "invalid_request_error",
		},
	}
	data, _ := json.Marshal(resp)
	return data
}
