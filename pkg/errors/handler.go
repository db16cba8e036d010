package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"sentinel/pkg/common"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

// ErrorHandler renders errors as ErrorResponse bodies and logs them
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes err to w. Errors outside the AppError family are reported
// as internal without leaking their text unless debug is on.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	appErr := GetAppError(err)
	if appErr == nil {
		appErr = NewInternalError("An internal error occurred").WithCause(err)
		if h.debug {
			appErr.Message = err.Error()
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	resp := h.response(r, string(appErr.Type), appErr.Message)
	resp.Code = appErr.Code
	resp.Details = appErr.Details
	if h.debug && appErr.StackTrace != "" {
		details := make(map[string]interface{}, len(resp.Details)+1)
		for k, v := range resp.Details {
			details[k] = v
		}
		details["stack_trace"] = appErr.StackTrace
		resp.Details = details
	}

	fields := h.requestFields(r, status)
	fields = append(fields, zap.String("error_type", string(appErr.Type)))
	if appErr.Code != "" {
		fields = append(fields, zap.String("error_code", appErr.Code))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}
	if len(appErr.Details) > 0 {
		fields = append(fields, zap.Any("details", appErr.Details))
	}
	h.logger.Log(levelFor(status), appErr.Message, fields...)

	h.write(w, status, resp)
}

// HandleStatus writes a bare status with message, for rejections that never
// produced an error value such as rate limiting or unknown routes.
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Log(levelFor(status), message, h.requestFields(r, status)...)
	h.write(w, status, h.response(r, string(typeForStatus(status)), message))
}

// Middleware turns handler panics into internal error responses
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *ErrorHandler) response(r *http.Request, errType, message string) ErrorResponse {
	return ErrorResponse{
		Error:     true,
		Type:      errType,
		Message:   message,
		RequestID: common.ExtractRequestID(r),
		TraceID:   r.Header.Get("X-Trace-ID"),
	}
}

func (h *ErrorHandler) requestFields(r *http.Request, status int) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", common.ExtractRequestID(r)),
	}
}

func (h *ErrorHandler) write(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// typeForStatus inverts statusByType. Statuses shared by several types
// resolve to the first listed here.
func typeForStatus(status int) ErrorType {
	for _, t := range []ErrorType{
		ErrorTypeValidation,
		ErrorTypeUnauthorized,
		ErrorTypeNotFound,
		ErrorTypeConflict,
		ErrorTypeTimeout,
		ErrorTypeUnavailable,
		ErrorTypeDelivery,
	} {
		if statusByType[t] == status {
			return t
		}
	}
	if status == http.StatusTooManyRequests {
		return ErrorTypeUnavailable
	}
	return ErrorTypeInternal
}
