package discord

import "fmt"

// UserFriendlyError is an error whose UserMessage can be shown to the
// invoking user. Message is kept for the logs.
type UserFriendlyError struct {
	// Message is the internal log message.
	Message string `json:"message"`

	// UserMessage is safe to display in Discord.
	UserMessage string `json:"user_message"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// NewUserFriendlyError creates a user-facing error.
func NewUserFriendlyError(message, userMessage string) *UserFriendlyError {
	return &UserFriendlyError{
		Message:     message,
		UserMessage: userMessage,
	}
}

// Error implements the error interface.
func (e *UserFriendlyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection.
func (e *UserFriendlyError) Unwrap() error {
	return e.Err
}

// CommandInvokeError wraps an error returned by a command handler. The
// framework raises it around the real cause.
type CommandInvokeError struct {
	// Command is the name of the command that failed.
	Command string `json:"command"`

	// Err is the error the handler returned.
	Err error `json:"-"`
}

// NewCommandInvokeError wraps err as raised while invoking command.
func NewCommandInvokeError(command string, err error) *CommandInvokeError {
	return &CommandInvokeError{Command: command, Err: err}
}

// Error implements the error interface.
func (e *CommandInvokeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("command %q raised an error", e.Command)
	}
	return fmt.Sprintf("command %q raised an error: %s", e.Command, e.Err.Error())
}

// Unwrap returns the handler's error.
func (e *CommandInvokeError) Unwrap() error {
	return e.Err
}

// IsUserFriendly returns true if err itself is a UserFriendlyError. Errors
// that merely wrap one are not user friendly.
func IsUserFriendly(err error) bool {
	_, ok := err.(*UserFriendlyError)
	return ok
}

// Cause strips a single CommandInvokeError wrapper. Any other error is
// returned unchanged.
func Cause(err error) error {
	if invoke, ok := err.(*CommandInvokeError); ok && invoke.Err != nil {
		return invoke.Err
	}
	return err
}
