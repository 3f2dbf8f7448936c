package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  NewError(KindConfig, "bad bounds"),
			want: "bad bounds",
		},
		{
			name: "with component and op",
			err:  NewError(KindConfig, "bad bounds").WithComponent("differential").WithOperation("NewBounds"),
			want: "differential: NewBounds: bad bounds",
		},
		{
			name: "with component only",
			err:  NewError(KindEvaluation, "batch failed").WithComponent("parallel"),
			want: "parallel: batch failed",
		},
		{
			name: "wrapped",
			err:  WrapError(fmt.Errorf("boom"), KindEvaluation, "evaluator call failed"),
			want: "evaluator call failed: boom",
		},
		{
			name: "formatted",
			err:  NewErrorf(KindConfig, "unknown strategy %q", "best9bin"),
			want: `unknown strategy "best9bin"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("inner failure")
	err := WrapError(inner, KindCallback, "callback failed")

	require.NotNil(t, err)
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, KindCallback, err.Kind)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, WrapError(nil, KindEvaluation, "nothing"))
	assert.Nil(t, WrapErrorf(nil, KindEvaluation, "nothing %d", 1))
}

func TestIsKind(t *testing.T) {
	err := NewError(KindConfig, "bad bounds")

	assert.True(t, IsKind(err, KindConfig))
	assert.False(t, IsKind(err, KindEvaluation))
	assert.False(t, IsKind(fmt.Errorf("plain"), KindConfig))
	assert.False(t, IsKind(nil, KindConfig))

	e, ok := IsOptimizationError(err)
	require.True(t, ok)
	assert.Equal(t, KindConfig, e.Kind)
}
