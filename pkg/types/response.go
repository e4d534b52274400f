package types

// SuccessEnvelope wraps every successful API response body under a "data"
// key so clients can unmarshal uniformly.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a failed request: a stable machine code, a
// human message, and optional structured details.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under an "error" key, mirroring
// SuccessEnvelope on the failure path.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
