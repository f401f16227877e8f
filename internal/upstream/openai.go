package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// FromOpenAI converts an error returned by the openai-go client. Context
// cancellation is passed through unchanged.
func FromOpenAI(service string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", apiErr.StatusCode)
		}
		return &Error{Service: service, StatusCode: apiErr.StatusCode, Message: msg}
	}
	return Transport(service, err)
}
