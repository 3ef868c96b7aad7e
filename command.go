package redis

import "github.com/xenking/redis/internal/resp"

// Callback is the one-shot continuation a submitted command completes
// with: either a decoded reply, or an error (never both in a meaningful
// way — callers should check err first).
type Callback func(reply resp.Reply, err error)

// command is one in-flight request. It is owned exclusively by whichever
// queue currently holds it, and is destroyed (references dropped) once
// its callback fires.
type command struct {
	name        string
	args        [][]byte
	cb          Callback
	subCommand  bool // treat the reply as a pub/sub control reply
	bufferArgs  bool // at least one argument is raw bytes
	hadBytesArg bool // detect_buffers bookkeeping: true iff any arg started as []byte
	sendAnyway  bool // bypass the readiness gate (AUTH, INFO, SELECT, resubscribe)
}

// normalizeCommand builds a command record from a variadic argument list:
// SADD/SREM flatten a trailing slice, SET/SETEX reject an absent final
// value.
func normalizeCommand(name string, rawArgs []interface{}, cb Callback) (*command, error) {
	rawArgs = flattenTrailingSlice(name, rawArgs)

	if err := validateArgs(name, rawArgs); err != nil {
		return nil, err
	}

	args := make([][]byte, len(rawArgs))
	hadBytes := false
	for i, a := range rawArgs {
		if b, ok := a.([]byte); ok {
			hadBytes = true
			args[i] = b
			continue
		}
		args[i] = resp.ArgBytes(a)
	}

	return &command{
		name:        name,
		args:        args,
		cb:          cb,
		bufferArgs:  hadBytes,
		hadBytesArg: hadBytes,
	}, nil
}

// flattenTrailingSlice expands a trailing []string or [][]byte argument
// to sadd/srem into individual positional arguments.
func flattenTrailingSlice(name string, args []interface{}) []interface{} {
	switch lower(name) {
	case "sadd", "srem":
	default:
		return args
	}
	if len(args) == 0 {
		return args
	}
	last := args[len(args)-1]
	var extra []interface{}
	switch v := last.(type) {
	case []string:
		extra = make([]interface{}, len(v))
		for i, s := range v {
			extra[i] = s
		}
	case [][]byte:
		extra = make([]interface{}, len(v))
		for i, b := range v {
			extra[i] = b
		}
	default:
		return args
	}
	out := make([]interface{}, 0, len(args)-1+len(extra))
	out = append(out, args[:len(args)-1]...)
	out = append(out, extra...)
	return out
}

// validateArgs rejects malformed argument lists before they reach the
// wire: an absent or nil final value for SET/SETEX is a failure surfaced
// on the callback rather than sent to the server.
func validateArgs(name string, args []interface{}) error {
	switch lower(name) {
	case "set", "setex":
		if len(args) == 0 || args[len(args)-1] == nil {
			return ErrInvalidArgument
		}
	case "auth":
		if len(args) != 1 {
			return ErrInvalidArgument
		}
		if _, ok := args[0].(string); !ok {
			if _, ok := args[0].([]byte); !ok {
				return ErrInvalidArgument
			}
		}
	}
	return nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
