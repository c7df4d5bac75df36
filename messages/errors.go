package messages

import "github.com/aukilabs/go-tooling/pkg/errors"

const (
	// The error type returned by modules that skipped a message.
	ErrTypeMsgSkip = "msg_skip"

	// The error type returned when a message requires a joined session.
	ErrTypeSessionNotJoined = "session_not_joined"

	// The error type of messages that could not be decoded.
	ErrTypeBadRequest = "bad_request"
)

var (
	// ErrModuleMsgSkip is returned by modules when they do not handle a message.
	ErrModuleMsgSkip = errors.New("module skipped message").WithType(ErrTypeMsgSkip)
)

// ErrorCode is the code carried by an error response.
type ErrorCode string

const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeSessionAlreadyJoined ErrorCode = "session_already_joined"
	ErrorCodeInternalServerError  ErrorCode = "internal_server_error"
	ErrorCodeOutOfRange           ErrorCode = "out_of_range"
)

// RespondError sends an error response for the given request.
func RespondError(respond ResponseSender, requestID uint32, code ErrorCode) {
	respond.Send(MsgTypeErrorResponse, requestID, ErrorResponse{
		Code: code,
	})
}
