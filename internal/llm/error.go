package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the reason an LLM call failed, so the agent loop can
// branch (e.g. retry once with a simplified history) without string-matching
// error text.
type Kind int

const (
	KindOther Kind = iota
	KindAuth
	KindConnectivity
	KindTimeout
	KindServer
	KindRejectedHistory // model rejected the request/tool-call history shape
)

// Error is the single error type every Provider returns for a failed call.
type Error struct {
	Kind    Kind
	Server  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewAuthError builds the differentiated authentication-failure message.
func NewAuthError(server string, cause error) *Error {
	return &Error{
		Kind:   KindAuth,
		Server: server,
		Cause:  cause,
		Message: fmt.Sprintf(
			"Authentication failed connecting to the model server.\n\n"+
				"  Server: %s\n  Error: %v\n\n"+
				"Check your api_key in the config file or FORGE_API_KEY.",
			server, cause),
	}
}

// NewConnectivityError builds the differentiated connection-failure message,
// with Ollama-specific suggestions when the model name implies an Ollama
// backend.
func NewConnectivityError(server, model string, cause error) *Error {
	if isOllamaModel(model) {
		name := strings.TrimPrefix(model, "ollama/")
		return &Error{
			Kind:   KindConnectivity,
			Server: server,
			Cause:  cause,
			Message: fmt.Sprintf(
				"Cannot connect to Ollama.\n\n  Server: %s\n\n"+
					"Suggestions:\n"+
					"  1. Start Ollama:     ollama serve\n"+
					"  2. Pull the model:   ollama pull %s\n"+
					"  3. Verify api_base in your config file",
				server, name),
		}
	}
	return &Error{
		Kind:   KindConnectivity,
		Server: server,
		Cause:  cause,
		Message: fmt.Sprintf(
			"Cannot connect to the model server.\n\n  Server: %s\n  Error: %v\n\n"+
				"Suggestions:\n"+
				"  1. Verify the server is running at %s\n"+
				"  2. Check your network/firewall settings\n"+
				"  3. Verify api_base in your config file",
			server, cause, server),
	}
}

// NewTimeoutError builds the differentiated timeout message.
func NewTimeoutError(server string, cause error) *Error {
	return &Error{
		Kind:   KindTimeout,
		Server: server,
		Cause:  cause,
		Message: fmt.Sprintf(
			"Connection to the model server timed out.\n\n  Server: %s\n\n"+
				"The server may be overloaded or unreachable. Check your network connection.",
			server),
	}
}

// NewServerError builds the differentiated server-error message.
func NewServerError(server string, statusCode int, cause error) *Error {
	return &Error{
		Kind:   KindServer,
		Server: server,
		Cause:  cause,
		Message: fmt.Sprintf(
			"Model server request failed (status %d).\n\n  Server: %s\n  Error: %v\n\n"+
				"Check your model server configuration and logs.",
			statusCode, server, cause),
	}
}

// NewRejectedHistoryError builds the message for a model that rejected the
// request outright — typically because it doesn't support tool calls or
// this message history shape. The literal substring "rejected the request"
// is part of Message so a caller that only has a generic error (not this
// typed one) can still detect the condition via errors.As/string match as a
// documented fallback.
func NewRejectedHistoryError(server string, cause error) *Error {
	return &Error{
		Kind:   KindRejectedHistory,
		Server: server,
		Cause:  cause,
		Message: fmt.Sprintf(
			"Model rejected the request.\n\n  Server: %s\n  Error: %v\n\n"+
				"The model may not support tool calls or this message format.\n"+
				"Try switching models.",
			server, cause),
	}
}

// NewOtherError builds the generic unexpected-failure message.
func NewOtherError(server string, cause error) *Error {
	return &Error{
		Kind:   KindOther,
		Server: server,
		Cause:  cause,
		Message: fmt.Sprintf(
			"Unexpected error from the model server.\n\n  Server: %s\n  Error: %v",
			server, cause),
	}
}

// IsRejectedHistory reports whether err is (or wraps) a rejected-request
// error, either via the typed Kind or — as a documented fallback for errors
// that didn't come through the typed path — the literal substring.
func IsRejectedHistory(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRejectedHistory {
		return true
	}
	return strings.Contains(err.Error(), "rejected the request")
}

func isOllamaModel(model string) bool {
	return strings.HasPrefix(model, "ollama/") || strings.Contains(model, "ollama")
}
