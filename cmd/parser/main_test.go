package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"wbanalytics/internal/persistence"
	wb "wbanalytics/internal/services/wildberries"
	"wbanalytics/internal/vault"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("shop acme: %w", &wb.HTTPError{StatusCode: 401}), "HTTPError(401)"},
		{fmt.Errorf("run: %w", context.Canceled), "Canceled"},
		{vault.ErrMissingKey, "EnvFileError"},
		{fmt.Errorf("x: %w", vault.ErrTokenNotFound), "TokenError"},
		{errors.Join(errors.New("a"), persistence.ErrUnknownTable), "SchemaError"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err), tt.err.Error())
	}
}
