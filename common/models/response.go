package models

// BaseResponse wraps every successful API payload
type BaseResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the envelope for API errors
type ErrorResponse struct {
	Error string `json:"error"`
	Msg   string `json:"message,omitempty"`
}
