package canvas

import "encoding/json"

// ErrorResponse is the Canvas error envelope.
type ErrorResponse struct {
	Errors json.RawMessage `json:"errors"`
}

// ErrorMessage is a single entry of the envelope's errors array.
type ErrorMessage struct {
	Message string `json:"message"`
}
