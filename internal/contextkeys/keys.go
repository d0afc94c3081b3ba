package contextkeys

import (
	"context"

	"github.com/ozodbek-dev/anonchat-bot/types"
)

type contextKey string

const (
	accountKey contextKey = "account"
	stateKey   contextKey = "dialog_state"
)

func WithAccount(ctx context.Context, account *types.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

func GetAccount(ctx context.Context) (*types.Account, bool) {
	account, ok := ctx.Value(accountKey).(*types.Account)
	return account, ok && account != nil
}

func WithDialogState(ctx context.Context, state *types.DialogState) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

// GetDialogState returns the user's stored conversation state; nil means
// idle.
func GetDialogState(ctx context.Context) *types.DialogState {
	state, _ := ctx.Value(stateKey).(*types.DialogState)
	return state
}
