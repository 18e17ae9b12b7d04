package conn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ConnectionFault is a transient transport failure: refused or timed out
// connects, dropped connections and malformed protocol framing.
// It is the only error class the retry loop retries.
type ConnectionFault struct {
	Addr string
	Op   string
	Err  error
}

func (e *ConnectionFault) Error() string {
	return fmt.Sprintf("connection fault on %s during %s: %v", e.Addr, e.Op, e.Err)
}

func (e *ConnectionFault) Unwrap() error {
	return e.Err
}

// ReplyError is an error reply sent by the server itself ("-ERR ...").
// The transport worked, so retrying would only repeat the answer.
type ReplyError struct {
	Addr    string
	Command string
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s replied to %s: %s", e.Addr, e.Command, e.Message)
}

// IsTransient reports whether err is worth another attempt
func IsTransient(err error) bool {
	var fault *ConnectionFault
	return errors.As(err, &fault)
}

// classify maps a go-redis error to ConnectionFault or ReplyError.
// Context cancellation is passed through untouched.
func classify(addr string, args []interface{}, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	op := commandName(args)
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return &ReplyError{Addr: addr, Command: op, Message: err.Error()}
	}
	return &ConnectionFault{Addr: addr, Op: op, Err: err}
}

func commandName(args []interface{}) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, strings.ToUpper(fmt.Sprint(a)))
	}
	return strings.Join(parts, " ")
}
