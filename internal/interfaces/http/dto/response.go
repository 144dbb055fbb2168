package dto

// Response is the envelope of every JSON reply. Exactly one of Data and
// Error is meaningful, selected by Success.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the error part of a Response. Details holds structured
// context, e.g. the material shortfalls behind ERR_INSUFFICIENT_STOCK.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// ValidationDetail names one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta is the paging information of a list reply
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newMeta(total int64, page, pageSize int) *Meta {
	m := &Meta{Total: total, Page: page, PageSize: pageSize}
	if pageSize > 0 {
		size := int64(pageSize)
		m.TotalPages = int((total + size - 1) / size)
	}
	return m
}

func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewMessageResponse is a success reply with a human readable note, such
// as the warnings of an auto-schedule run
func NewMessageResponse(data any, message string) Response {
	return Response{Success: true, Data: data, Message: message}
}

func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	return Response{Success: true, Data: data, Meta: newMeta(total, page, pageSize)}
}

func NewErrorResponseWithRequestID(code, message, requestID string, details any) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message, RequestID: requestID, Details: details}}
}

// NewValidationErrorResponse lists the rejected fields under ERR_VALIDATION
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID, details)
}
