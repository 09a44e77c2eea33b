package membership

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	err := fmt.Errorf("join: %w", conflict(ReasonAlreadyMember))

	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindNotFound))
	assert.Equal(t, ReasonAlreadyMember, ReasonOf(err))
	assert.Empty(t, ReasonOf(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  *Error
		want bool
	}{
		{newError(KindDependency, ReasonStoreUnavailable, errConnReset), true},
		{conflict(ReasonConcurrentChange), true},
		{conflict(ReasonAlreadyMember), false},
		{notFound(ReasonInviteNotFound), false},
		{newError(KindExhausted, ReasonInviteCodesExhausted, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Reason, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
		})
	}
}

func TestDependencyPassesThroughDomainErrors(t *testing.T) {
	inner := conflict(ReasonNotPersonal)
	assert.Same(t, inner, dependency("convert household", inner))

	wrapped := dependency("read membership", errConnReset)
	assert.True(t, IsKind(wrapped, KindDependency))
	assert.ErrorIs(t, wrapped, errConnReset)
	assert.Contains(t, wrapped.Error(), "read membership")
}
