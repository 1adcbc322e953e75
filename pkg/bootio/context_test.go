package bootio

import (
	"context"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext_CarriesCommandName(t *testing.T) {
	rc := NewContext(context.Background(), "bootstrap")
	require.NotNil(t, rc.Ctx)
	require.NotNil(t, rc.Log)
	require.NotNil(t, rc.Span)
	assert.Equal(t, "bootstrap", rc.Command)
}

func TestHandlePanic_ConvertsToError(t *testing.T) {
	rc := NewContext(context.Background(), "test")

	var err error
	func() {
		defer rc.HandlePanic(&err)
		panic("boom")
	}()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestEnd_SafeOnSuccessAndFailure(t *testing.T) {
	rc := NewContext(context.Background(), "test")
	var err error
	rc.End(&err)

	rc = NewContext(context.Background(), "test")
	err = cerr.New("failed")
	rc.End(&err)
}
