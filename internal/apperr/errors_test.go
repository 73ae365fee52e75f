package apperr

import (
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", pkgerrors.Wrap(Blocked("this conversation is blocked"), "send"))
	assert.Equal(t, KindConversationBlocked, KindOf(err))
	assert.Equal(t, "this conversation is blocked", MessageOf(err))
	assert.True(t, Is(err, KindConversationBlocked))
}

func TestUnstructuredErrorsAreInternal(t *testing.T) {
	err := fmt.Errorf("pq: connection refused")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
}

func TestInternalHidesCause(t *testing.T) {
	err := Internal(fmt.Errorf("dial tcp: timeout"))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.Contains(t, err.Error(), "dial tcp: timeout")
}

func TestSentinelMatching(t *testing.T) {
	notFound := NotFound("conversation not found")
	assert.ErrorIs(t, pkgerrors.Wrap(notFound, "repo"), notFound)
	assert.NotErrorIs(t, NotFound("listing not found"), notFound)
	assert.ErrorIs(t, NotFound("listing not found"), &Error{Kind: KindNotFound})
	assert.NotErrorIs(t, Validation("bad"), &Error{Kind: KindNotFound})
}
