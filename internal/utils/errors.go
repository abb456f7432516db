// internal/utils/errors.go
package utils

import "fmt"

// MessagingError reports a notification that could not be delivered.
type MessagingError struct {
	Channel   string
	Recipient string
	Err       error
}

func NewMessagingError(channel, recipient string, err error) *MessagingError {
	return &MessagingError{Channel: channel, Recipient: recipient, Err: err}
}

func (e *MessagingError) Error() string {
	return fmt.Sprintf("failed to send %s notification to %s: %v", e.Channel, e.Recipient, e.Err)
}

func (e *MessagingError) Unwrap() error {
	return e.Err
}
