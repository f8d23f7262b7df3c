package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// APIEnvelope wraps every successful response body.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// MessageResponse is a body that carries only a message. The envelope lifts
// it into the top-level message field.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func message(msg string) *MessageOutput {
	return &MessageOutput{Body: MessageResponse{Message: msg}}
}

// envelope is the huma transformer that produces the response envelope:
// {success, message?, data} on success and
// {success: false, message, error: {code, details}} on failure.
func (m *errorMapper) envelope(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)

	switch body := v.(type) {
	case *APIError:
		return body, nil
	case error:
		return m.fromError(code, body), nil
	case MessageResponse:
		return APIEnvelope{Success: true, Message: body.Message}, nil
	case *MessageResponse:
		return APIEnvelope{Success: true, Message: body.Message}, nil
	case APIEnvelope, *APIEnvelope:
		return body, nil
	}

	if code >= 400 {
		return &APIError{
			status:  code,
			Message: "request failed",
			Body:    ErrorBody{Code: statusToCode(code), Details: v},
		}, nil
	}
	return APIEnvelope{Success: true, Data: v}, nil
}
