package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
)

// dloopTokenABI covers the ERC-20 + delegation surface of the DLOOP token.
const dloopTokenABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"delegates","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getVotes","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"delegate","stateMutability":"nonpayable","inputs":[{"name":"delegatee","type":"address"}],"outputs":[]}
]`

// Token reads DLOOP balances and delegation state.
type Token struct {
	client  *Client
	address common.Address
	abi     abi.ABI
}

// NewToken binds the token reader to the DLOOP contract at address.
func NewToken(client *Client, address string) (*Token, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("chain: invalid token address %q", address)
	}
	parsed, err := abi.JSON(strings.NewReader(dloopTokenABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse token abi: %w", err)
	}
	return &Token{
		client:  client,
		address: common.HexToAddress(address),
		abi:     parsed,
	}, nil
}

// Address returns the bound contract address.
func (t *Token) Address() common.Address { return t.address }

// ABI returns the parsed contract ABI, shared with the transaction sender.
func (t *Token) ABI() abi.ABI { return t.abi }

// BalanceOf returns a holder's DLOOP balance in whole tokens, along with
// their current voting power (balance minus weight delegated away).
func (t *Token) BalanceOf(ctx context.Context, holder string) (domain.TokenBalance, error) {
	if !common.IsHexAddress(holder) {
		return domain.TokenBalance{}, fmt.Errorf("chain: invalid holder address %q", holder)
	}
	addr := common.HexToAddress(holder)

	rawBalance, err := t.callUint(ctx, "balanceOf", addr)
	if err != nil {
		return domain.TokenBalance{}, fmt.Errorf("chain: balance of %s: %w", holder, err)
	}
	rawVotes, err := t.callUint(ctx, "getVotes", addr)
	if err != nil {
		return domain.TokenBalance{}, fmt.Errorf("chain: votes of %s: %w", holder, err)
	}

	balance := governance.NormalizeVoteValue(rawBalance)
	votes := governance.NormalizeVoteValue(rawVotes)
	delegated := balance - votes
	if delegated < 0 {
		delegated = 0
	}

	return domain.TokenBalance{
		Address:   addr.Hex(),
		Balance:   balance,
		Delegated: delegated,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// TotalSupply returns the token's total supply in whole tokens.
func (t *Token) TotalSupply(ctx context.Context) (float64, error) {
	raw, err := t.callUint(ctx, "totalSupply")
	if err != nil {
		return 0, fmt.Errorf("chain: total supply: %w", err)
	}
	return governance.NormalizeVoteValue(raw), nil
}

// DelegateOf returns the address a holder currently delegates to, or the
// zero address when undelegated.
func (t *Token) DelegateOf(ctx context.Context, holder string) (string, error) {
	if !common.IsHexAddress(holder) {
		return "", fmt.Errorf("chain: invalid holder address %q", holder)
	}
	out, err := t.call(ctx, "delegates", common.HexToAddress(holder))
	if err != nil {
		return "", fmt.Errorf("chain: delegates of %s: %w", holder, err)
	}
	delegatee, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("chain: delegates: unexpected output type %T", out[0])
	}
	return delegatee.Hex(), nil
}

func (t *Token) callUint(ctx context.Context, method string, args ...any) (*big.Int, error) {
	out, err := t.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("abi: %s: unexpected output type %T", method, out[0])
	}
	return v, nil
}

func (t *Token) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := t.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("abi: pack %s: %w", method, err)
	}

	var res []byte
	err = t.client.withRetry(ctx, method, func(ctx context.Context) error {
		var callErr error
		res, callErr = t.client.eth.CallContract(ctx, ethereum.CallMsg{
			To:   &t.address,
			Data: data,
		}, nil)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	out, err := t.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("abi: unpack %s: %w", method, err)
	}
	return out, nil
}
