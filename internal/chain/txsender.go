package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/dloopdao/governd/internal/domain"
	"github.com/dloopdao/governd/internal/governance"
)

// TxSender submits signed governance transactions with the operator key.
// Deployments without a key run read-only and never construct one.
type TxSender struct {
	client *Client
	dao    *AssetDAO
	token  *Token
	key    *ecdsa.PrivateKey
	from   common.Address
	signer types.Signer
}

// NewTxSender creates a TxSender from a resolved private key.
func NewTxSender(client *Client, dao *AssetDAO, token *Token, key *ecdsa.PrivateKey) *TxSender {
	return &TxSender{
		client: client,
		dao:    dao,
		token:  token,
		key:    key,
		from:   ethcrypto.PubkeyToAddress(key.PublicKey),
		signer: types.LatestSignerForChainID(big.NewInt(client.ChainID())),
	}
}

// From returns the sending address as a hex string.
func (s *TxSender) From() string { return s.from.Hex() }

// Vote casts a for/against vote on a proposal. The returned string is the
// transaction hash.
func (s *TxSender) Vote(ctx context.Context, proposalID int64, support bool) (string, error) {
	data, err := s.dao.abi.Pack("vote", big.NewInt(proposalID), support)
	if err != nil {
		return "", fmt.Errorf("chain: pack vote: %w", err)
	}
	return s.send(ctx, s.dao.address, data)
}

// ExecuteProposal executes a passed proposal.
func (s *TxSender) ExecuteProposal(ctx context.Context, proposalID int64) (string, error) {
	data, err := s.dao.abi.Pack("executeProposal", big.NewInt(proposalID))
	if err != nil {
		return "", fmt.Errorf("chain: pack execute: %w", err)
	}
	return s.send(ctx, s.dao.address, data)
}

// CancelProposal cancels a proposal; the contract enforces that only the
// proposer may do so.
func (s *TxSender) CancelProposal(ctx context.Context, proposalID int64) (string, error) {
	data, err := s.dao.abi.Pack("cancelProposal", big.NewInt(proposalID))
	if err != nil {
		return "", fmt.Errorf("chain: pack cancel: %w", err)
	}
	return s.send(ctx, s.dao.address, data)
}

// CreateProposal submits a new invest/divest proposal. Amount is in whole
// tokens and encoded to 18-decimal fixed point on the wire.
func (s *TxSender) CreateProposal(ctx context.Context, pType domain.ProposalType, asset string, amount float64, description string) (string, error) {
	if !common.IsHexAddress(asset) {
		return "", fmt.Errorf("chain: invalid asset address %q", asset)
	}
	ordinal := uint8(0)
	if pType == domain.ProposalTypeDivest {
		ordinal = 1
	}
	data, err := s.dao.abi.Pack("createProposal",
		ordinal,
		common.HexToAddress(asset),
		governance.ToFixedPoint(amount),
		description,
	)
	if err != nil {
		return "", fmt.Errorf("chain: pack create proposal: %w", err)
	}
	return s.send(ctx, s.dao.address, data)
}

// Delegate delegates the operator's voting power to delegatee.
func (s *TxSender) Delegate(ctx context.Context, delegatee string) (string, error) {
	if !common.IsHexAddress(delegatee) {
		return "", fmt.Errorf("chain: invalid delegatee address %q", delegatee)
	}
	data, err := s.token.abi.Pack("delegate", common.HexToAddress(delegatee))
	if err != nil {
		return "", fmt.Errorf("chain: pack delegate: %w", err)
	}
	return s.send(ctx, s.token.address, data)
}

// send builds, signs, and broadcasts a transaction. Gas estimation failures
// surface the mapped revert reason so callers can show the real cause
// before anything hits the mempool.
func (s *TxSender) send(ctx context.Context, to common.Address, data []byte) (string, error) {
	eth := s.client.eth

	nonce, err := eth.PendingNonceAt(ctx, s.from)
	if err != nil {
		return "", fmt.Errorf("chain: nonce: %w", err)
	}

	gasPrice, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: gas price: %w", err)
	}

	gasLimit, err := eth.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("chain: estimate gas: %w", MapRevert(err))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return "", fmt.Errorf("chain: sign: %w", domain.ErrSigningFailed)
	}

	if err := eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: send: %w", MapRevert(err))
	}
	return signed.Hash().Hex(), nil
}
