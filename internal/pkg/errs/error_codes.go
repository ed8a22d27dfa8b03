/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the
server and in the ERROR frames sent to chat clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a request body or frame is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that extra content followed the JSON document.
	ErrExtraContentInBody = 1004

	// ErrUnsupportedFrameType indicates that a websocket frame carried an unknown type.
	ErrUnsupportedFrameType = 1008

	// ErrOriginNotAllowed indicates that a websocket upgrade came from a disallowed origin.
	ErrOriginNotAllowed = 1009
)

// 2xxx: Chat Session Errors
const (
	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrNotJoined indicates that the session tried to chat before joining.
	ErrNotJoined = 2202

	// ErrAlreadyJoined indicates a second entry attempt on an active session.
	ErrAlreadyJoined = 2203

	// ErrSessionClosed indicates an operation on a disconnected session.
	ErrSessionClosed = 2204
)

// 3xxx: Entry and Credential Errors
const (
	// ErrNameRequired indicates an empty guest display name.
	ErrNameRequired = 3101

	// ErrNameTooLong indicates a guest display name over the length limit.
	ErrNameTooLong = 3102

	// ErrFieldsRequired indicates one or more empty login/signup fields. Fields lists them.
	ErrFieldsRequired = 3103

	// ErrInvalidPassword indicates the password does not satisfy the signup policy.
	ErrInvalidPassword = 3104

	// ErrUserAlreadyExists indicates the username is already registered.
	ErrUserAlreadyExists = 3105

	// ErrEmailAlreadyExists indicates the email is already registered.
	ErrEmailAlreadyExists = 3106

	// ErrInvalidCredentials is returned for any failed login, whatever the cause.
	ErrInvalidCredentials = 3107

	// ErrPasswordTooLong indicates a password over the bcrypt input limit.
	ErrPasswordTooLong = 3108

	// ErrNameTaken indicates a guest name that matches a registered username.
	ErrNameTaken = 3109
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
