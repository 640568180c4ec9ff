package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeIdempotency:   http.StatusConflict,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		assert.Equal(t, status, MetadataFor(code).HTTPStatus, code)
	}
	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestPublicMessageHidesInternalText(t *testing.T) {
	internal := Wrap(CodeInternal, stdErrors.New("dial tcp"), "load entries")
	assert.Equal(t, "internal server error", internal.PublicMessage())

	dep := New(CodeDependency, "stripe timed out")
	assert.Equal(t, "dependency unavailable", dep.PublicMessage())

	state := New(CodeStateConflict, "entry is paid")
	assert.Equal(t, "entry is paid", state.PublicMessage())

	empty := New(CodeNotFound, "")
	assert.Equal(t, "resource not found", empty.PublicMessage())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "claim payout")

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: claim payout: boom", wrapped.Error())
	assert.Equal(t, "NOT_FOUND: gone", New(CodeNotFound, "gone").Error())
}

func TestAsAndIsCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(CodeForbidden, "not a vendor").WithDetails(map[string]any{"role": "buyer"}))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeForbidden, typed.Code())
	assert.Equal(t, map[string]any{"role": "buyer"}, typed.Details())
	assert.True(t, IsCode(err, CodeForbidden))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.Nil(t, As(nil))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
}

func TestDumpCapturesPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_settlement_entries_dedupe_key", TableName: "settlement_entries", Message: "duplicate key"}
	err := Wrap(CodeConflict, fmt.Errorf("insert entry: %w", pgErr), "create settlement entries")

	dump := Dump(err)
	assert.Equal(t, CodeConflict, dump.Code)
	assert.Equal(t, "23505", dump.PGCode)
	assert.Equal(t, "ux_settlement_entries_dedupe_key", dump.PGConstraint)
	assert.Len(t, dump.Chain, 3)

	fields := dump.Fields()
	assert.Equal(t, "settlement_entries", fields["pg_table"])
	_, hasColumn := fields["pg_column"]
	assert.False(t, hasColumn)

	assert.Equal(t, ErrorDump{}, Dump(nil))
}
