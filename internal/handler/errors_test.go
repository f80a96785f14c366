package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatepass/gatepass/internal/apperr"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validationf("bad"), http.StatusBadRequest},
		{apperr.NotFoundf("missing"), http.StatusNotFound},
		{apperr.Forbiddenf("nope"), http.StatusForbidden},
		{apperr.BusinessRulef("full"), http.StatusConflict},
		{apperr.Conflictf("raced"), http.StatusConflict},
		{apperr.Transient("db", errors.New("down")), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), "error: %v", tc.err)
	}
}
