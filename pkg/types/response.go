package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ListEnvelope is the success body for paginated collections.
type ListEnvelope struct {
	Data any      `json:"data"`
	Page PageInfo `json:"page"`
}

type PageInfo struct {
	Skip  int   `json:"skip"`
	Take  int   `json:"take"`
	Total int64 `json:"total"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
