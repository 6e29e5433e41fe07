package errs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFindsCodeErrorThroughWrapping(t *testing.T) {
	err := ErrRecordNotFound.WrapMsg("chat missing", "chatId", "c1")
	err = WrapMsg(err, "fetch chats")

	ce := Parse(err)
	require.NotNil(t, ce)
	assert.Equal(t, 40401, ce.Code)
	assert.Contains(t, ce.Detail, "chat missing")
	assert.Contains(t, ce.Detail, "chatId=c1")
}

func TestParseNonCodeError(t *testing.T) {
	assert.Nil(t, Parse(io.EOF))
	assert.Nil(t, Parse(Wrap(io.EOF)))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, ErrArgs.HTTPStatus())
	assert.Equal(t, 401, ErrTokenInvalid.HTTPStatus())
	assert.Equal(t, 403, ErrNoPermission.HTTPStatus())
	assert.Equal(t, 404, ErrRecordNotFound.HTTPStatus())
	assert.Equal(t, 500, ErrInternal.HTTPStatus())
}

func TestIsMatchesByCode(t *testing.T) {
	err := ErrNotMember.Wrap()
	assert.True(t, ErrNotMember.Is(err))
	assert.False(t, ErrNoPermission.Is(err))
}

func TestWrapDoesNotMutateSentinel(t *testing.T) {
	_ = ErrArgs.WrapMsg("first detail")
	assert.Equal(t, "", ErrArgs.Detail)

	withDetail := ErrArgs.WithDetail("field required")
	assert.Equal(t, "", ErrArgs.Detail)
	assert.Equal(t, "field required", withDetail.Detail)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil))
	assert.NoError(t, WrapMsg(nil, "ignored"))
}

func TestWrapKeepsCause(t *testing.T) {
	err := WrapMsg(io.EOF, "read frame")
	assert.True(t, errors.Is(err, io.EOF))
	assert.Contains(t, err.Error(), "read frame")
}

func TestErrorString(t *testing.T) {
	ce := NewCodeError(40001, "invalid argument")
	assert.Equal(t, "40001 invalid argument", ce.Error())

	withDetail := ce.WithDetail("username too short")
	assert.Equal(t, "40001 invalid argument username too short", withDetail.Error())
}
