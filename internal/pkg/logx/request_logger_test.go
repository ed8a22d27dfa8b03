package logx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "203.0.113.57:51234", want: "203.0.113.0"},
		{in: "203.0.113.57", want: "203.0.113.0"},
		{in: "127.0.0.1:8550", want: "127.0.0.1"},
		{in: "[2001:db8:1:2:3:4:5:6]:443", want: "2001:db8:1:2::"},
		{in: "not-an-ip", want: "unknown_ip"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AnonymizeIP(tt.in), tt.in)
	}
}

func TestRequestLogger_AttachesContextLogger(t *testing.T) {
	var gotLogger bool
	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLogger = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	assert.True(t, gotLogger)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
