package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

// maxErrorBody bounds how much of an error body is read.
const maxErrorBody = 1 << 20

// ParseResponseError reads a non-2xx response and maps it onto an AppError.
// It understands both the storefront {error:{code,message}} envelope and the
// PayPal style {name, message, details[{issue}]} body. The body is consumed
// and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	code, message := decodeErrorBody(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return mapStatus(resp.StatusCode, code, fmt.Sprintf("%s: %s", serviceName, message))
}

// decodeErrorBody extracts a code and message from the known error shapes.
func decodeErrorBody(body []byte) (code, message string) {
	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Name    string `json:"name"`
		Message string `json:"message"`
		Details []struct {
			Issue       string `json:"issue"`
			Description string `json:"description"`
		} `json:"details"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return "", string(body)
	}

	switch {
	case envelope.Error != nil:
		return envelope.Error.Code, envelope.Error.Message
	case len(envelope.Details) > 0:
		return envelope.Details[0].Issue, envelope.Details[0].Description
	case envelope.Name != "":
		return envelope.Name, envelope.Message
	}
	return "", string(body)
}

func mapStatus(status int, code, message string) error {
	var base *apperrors.AppError
	switch {
	case status == http.StatusNotFound:
		base = &apperrors.AppError{Code: "NOT_FOUND", Message: message, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusConflict:
		base = apperrors.Conflict(message)
	case status == http.StatusUnprocessableEntity:
		base = apperrors.PaymentFailed(message)
	case status >= 400 && status < 500:
		base = apperrors.InvalidInput(message)
	default:
		base = apperrors.ServiceUnavailable(message)
	}
	if code != "" {
		base.Code = code
	}
	return base
}

// IsServerError reports whether err is a 5xx answer from CircuitBreakerClient.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsClientError returns true for 4xx status codes.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

// DecodeJSON decodes a 2xx response body into dst, or returns the mapped
// error for any other status. The body is always closed.
func DecodeJSON(resp *http.Response, serviceName string, dst any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", serviceName, err)
	}
	return nil
}
