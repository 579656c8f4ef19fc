package tooldriver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/curtin-storage-engine/domain"
)

func TestDriverRunSuccess(t *testing.T) {
	d := New(nil)
	stdout, _, err := d.Run(context.Background(), []string{"echo", "hello"}, 5)
	require.NoError(t, err)
	assert.Contains(t, stdout, "hello")
}

func TestDriverRunFailureWrapsToolError(t *testing.T) {
	d := New(nil)
	_, _, err := d.Run(context.Background(), []string{"false"}, 5)
	require.Error(t, err)
	var toolErr *domain.ToolError
	assert.ErrorAs(t, err, &toolErr)
}

func TestDriverRunTimeout(t *testing.T) {
	d := New(nil)
	_, _, err := d.Run(context.Background(), []string{"sleep", "5"}, 1)
	require.Error(t, err)
}

func TestDriverEmptyArgv(t *testing.T) {
	d := New(nil)
	_, _, err := d.Run(context.Background(), nil, 5)
	require.Error(t, err)
}
