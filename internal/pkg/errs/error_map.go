package errs

import "net/http"

// errorMap holds the template CustomError for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrUnsupportedFrameType: {Code: ErrUnsupportedFrameType, Message: "Unsupported message type: %s."},
	ErrOriginNotAllowed:     {Code: ErrOriginNotAllowed, Message: "Origin not allowed.", Status: http.StatusForbidden},

	// 2xxx
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrNotJoined:             {Code: ErrNotJoined, Message: "Join the chat before sending messages."},
	ErrAlreadyJoined:         {Code: ErrAlreadyJoined, Message: "You have already joined the chat."},
	ErrSessionClosed:         {Code: ErrSessionClosed, Message: "This session has ended."},

	// 3xxx
	ErrNameRequired:       {Code: ErrNameRequired, Message: "Name cannot be blank!"},
	ErrNameTooLong:        {Code: ErrNameTooLong, Message: "Name cannot be longer than %d characters."},
	ErrFieldsRequired:     {Code: ErrFieldsRequired, Message: "All fields are required!"},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Password must be at least 8 characters long and should not contain special characters."},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrEmailAlreadyExists: {Code: ErrEmailAlreadyExists, Message: "Email is already registered."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Invalid credentials"},
	ErrPasswordTooLong:    {Code: ErrPasswordTooLong, Message: "Password cannot be longer than %d bytes."},
	ErrNameTaken:          {Code: ErrNameTaken, Message: "That name belongs to a registered user. Please log in or pick another."},

	// 5xxx
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
