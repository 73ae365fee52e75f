package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationParticipants(t *testing.T) {
	readAt := time.Now()
	conv := Conversation{BuyerID: 1, SellerID: 2, BuyerLastReadAt: &readAt}

	assert.True(t, conv.IsParticipant(1))
	assert.True(t, conv.IsParticipant(2))
	assert.False(t, conv.IsParticipant(3))

	side, err := conv.SideOf(2)
	require.NoError(t, err)
	assert.Equal(t, SideSeller, side)
	_, err = conv.SideOf(3)
	assert.ErrorIs(t, err, ErrNotParticipant)

	other, err := conv.OtherParticipant(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), other)
	_, err = conv.OtherParticipant(3)
	assert.ErrorIs(t, err, ErrNotParticipant)

	assert.Equal(t, &readAt, conv.LastReadAt(1))
	assert.Nil(t, conv.LastReadAt(2))
}

func TestConversationState(t *testing.T) {
	assert.Equal(t, StateOpen, Conversation{}.State())
	assert.Equal(t, StateBlocked, Conversation{IsBlocked: true}.State())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 20, 50)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 500, 20, 50)
	assert.Equal(t, 50, p.Limit())
	assert.Equal(t, 100, p.Offset())

	p.Total = 101
	assert.Equal(t, 3, p.LastPage())
	assert.Equal(t, 1, Pagination{PerPage: 20}.LastPage())

	p = NewPagination(math.MaxInt/10, 20, 20, 50)
	assert.Equal(t, math.MaxInt/20, p.Page)
	assert.GreaterOrEqual(t, p.Offset(), 0)

	p = NewPagination(math.MaxInt, 50, 20, 50)
	assert.GreaterOrEqual(t, p.Offset(), 0)
	assert.Greater(t, p.Offset(), 1<<40)
}

func TestPaginationJSONIncludesLastPage(t *testing.T) {
	raw, err := json.Marshal(Pagination{Page: 1, PerPage: 20, Total: 41})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"page":1,"per_page":20,"total":41,"last_page":3}`, string(raw))
}
