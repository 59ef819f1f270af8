package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInvalidRequest, KindOf(InvalidRequest("no query")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NotFound("none"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestPublicMessageHidesInternalDetail(t *testing.T) {
	assert.Equal(t, "No query provided", PublicMessage(InvalidRequest("No query provided")))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("db password leaked")))
	assert.Equal(t, "Internal server error", PublicMessage(Internal(errors.New("nil map"))))
}

func TestCollaboratorUnwraps(t *testing.T) {
	cause := errors.New("timeout")
	err := Collaborator("search failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "search failed")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInvalidRequest))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(KindCollaboratorFailure))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
}
