package req

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lobbychat/internal/pkg/errs"
)

type payload struct {
	Name string `json:"name"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("decodes a single document", func(t *testing.T) {
		var p payload
		require.Nil(t, DecodeJSON([]byte(`{"name":"Ann"}`), &p))
		assert.Equal(t, "Ann", p.Name)
	})

	t.Run("allows trailing whitespace", func(t *testing.T) {
		var p payload
		require.Nil(t, DecodeJSON([]byte("{\"name\":\"Ann\"}\n  "), &p))
		assert.Equal(t, "Ann", p.Name)
	})

	tests := []struct {
		name string
		data string
		code int
	}{
		{name: "malformed", data: `{"name":`, code: errs.ErrInvalidJSONFormat},
		{name: "unknown field", data: `{"name":"Ann","admin":true}`, code: errs.ErrInvalidJSONFormat},
		{name: "wrong type", data: `{"name":42}`, code: errs.ErrInvalidJSONFormat},
		{name: "trailing document", data: `{"name":"Ann"}{"name":"Bob"}`, code: errs.ErrExtraContentInBody},
		{name: "stray closing brace", data: `{"name":"Ann"}}`, code: errs.ErrExtraContentInBody},
		{name: "stray closing bracket", data: `{"name":"Ann"}]`, code: errs.ErrExtraContentInBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := DecodeJSON([]byte(tt.data), &p)
			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}
