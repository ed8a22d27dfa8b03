/*
Package req decodes client input into typed structs, mapping decoding failures
onto application error codes.
*/
package req

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"lobbychat/internal/pkg/errs"
)

// DecodeJSON strictly decodes a single JSON document from data into dst.
// Unknown fields and trailing content are rejected.
func DecodeJSON(data []byte, dst any) *errs.CustomError {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if err := decoder.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
