package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/packfinderz-settlement/pkg/errors"
)

type noteRequest struct {
	Note string `json:"note" validate:"max=5"`
}

func TestDecodeOptionalJSONBody(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		present  bool
		wantCode pkgerrors.Code
		wantNote string
	}{
		{name: "empty body", body: "", present: false},
		{name: "valid", body: `{"note":"ok"}`, present: true, wantNote: "ok"},
		{name: "unknown field", body: `{"reason":"x"}`, present: true, wantCode: pkgerrors.CodeValidation},
		{name: "too long", body: `{"note":"abcdefg"}`, present: true, wantCode: pkgerrors.CodeValidation},
		{name: "trailing object", body: `{"note":"a"}{"note":"b"}`, present: true, wantCode: pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dest noteRequest
			present, err := DecodeOptionalJSONBody(req, &dest)
			assert.Equal(t, tc.present, present)
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, tc.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantNote, dest.Note)
		})
	}
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	var dest noteRequest
	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"abcdefgh"}`))
	var dest noteRequest
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]string{"note": "must be at most 5"}, typed.Details())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello \x00 ", 0))
	assert.Equal(t, "line one\nline two", SanitizeString("line one\nline two", 0))
	assert.Equal(t, "héllo", SanitizeString("héllo wörld", 5))
	assert.Equal(t, "", SanitizeString("   ", 10))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=30&page=abc&big=9999", nil)

	v, err := ParseQueryInt(req, "limit", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	v, err = ParseQueryInt(req, "missing", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = ParseQueryInt(req, "page", 1, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(req, "big", 1, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseUUID(t *testing.T) {
	id, err := ParseUUID(" 3f8d5c7e-2b1a-4c6d-9e0f-112233445566 ", "entry id")
	require.NoError(t, err)
	assert.Equal(t, "3f8d5c7e-2b1a-4c6d-9e0f-112233445566", id.String())

	_, err = ParseUUID("", "entry id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseUUID("nope", "entry id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
