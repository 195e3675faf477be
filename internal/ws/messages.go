package ws

import "encoding/json"

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "auctions/bid_placed"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
}
