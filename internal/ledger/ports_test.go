package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"moneymanager/internal/core"
)

func TestErrorMatchesUnauthorizedOnlyFor401(t *testing.T) {
	unauth := fmt.Errorf("monthly report: %w", &Error{Status: 401, Message: "Invalid token"})
	assert.ErrorIs(t, unauth, ErrUnauthorized)

	rejected := &Error{Status: 400, Message: "Insufficient balance"}
	assert.False(t, errors.Is(rejected, ErrUnauthorized))
}

func TestUserMessage(t *testing.T) {
	wrapped := fmt.Errorf("transfer: %w", &Error{Status: 400, Message: "Insufficient balance"})
	assert.Equal(t, "Insufficient balance", UserMessage(wrapped, "Transfer failed"))
	assert.Equal(t, "Enter a valid amount", UserMessage(core.ErrInvalidAmount, "Failed to add"))
	assert.Equal(t, "Failed to edit", UserMessage(errors.New("dial tcp: refused"), "Failed to edit"))
	assert.Equal(t, "Failed to add", UserMessage(&Error{Status: 500}, "Failed to add"))
}
