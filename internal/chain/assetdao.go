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

// assetDAOABI covers the subset of the AssetDAO contract the dashboard
// uses: proposal reads plus the vote/execute/cancel/create entry points.
const assetDAOABI = `[
	{"type":"function","name":"proposalCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getProposal","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[
		{"name":"proposer","type":"address"},
		{"name":"proposalType","type":"uint8"},
		{"name":"asset","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"forVotes","type":"uint256"},
		{"name":"againstVotes","type":"uint256"},
		{"name":"createdAt","type":"uint256"},
		{"name":"votingEnds","type":"uint256"},
		{"name":"executed","type":"bool"},
		{"name":"canceled","type":"bool"},
		{"name":"state","type":"uint8"},
		{"name":"description","type":"string"}
	]},
	{"type":"function","name":"createProposal","stateMutability":"nonpayable","inputs":[
		{"name":"proposalType","type":"uint8"},
		{"name":"asset","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"description","type":"string"}
	],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"vote","stateMutability":"nonpayable","inputs":[
		{"name":"proposalId","type":"uint256"},
		{"name":"support","type":"bool"}
	],"outputs":[]},
	{"type":"function","name":"executeProposal","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"cancelProposal","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]}
]`

// AssetDAO reads proposal state from the governance contract.
type AssetDAO struct {
	client  *Client
	address common.Address
	abi     abi.ABI
}

// NewAssetDAO binds the AssetDAO reader to the contract at address.
func NewAssetDAO(client *Client, address string) (*AssetDAO, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("chain: invalid asset dao address %q", address)
	}
	parsed, err := abi.JSON(strings.NewReader(assetDAOABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse asset dao abi: %w", err)
	}
	return &AssetDAO{
		client:  client,
		address: common.HexToAddress(address),
		abi:     parsed,
	}, nil
}

// Address returns the bound contract address.
func (d *AssetDAO) Address() common.Address { return d.address }

// ABI returns the parsed contract ABI, shared with the transaction sender.
func (d *AssetDAO) ABI() abi.ABI { return d.abi }

// ProposalCount returns the total number of proposals ever created.
func (d *AssetDAO) ProposalCount(ctx context.Context) (int64, error) {
	out, err := d.call(ctx, "proposalCount")
	if err != nil {
		return 0, fmt.Errorf("chain: proposal count: %w", err)
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("chain: proposal count: unexpected output type %T", out[0])
	}
	return count.Int64(), nil
}

// GetProposal fetches a single proposal and normalizes it into the domain
// shape: tallies come back as whole tokens, the type is inferred enum-first,
// and a zero votingEnds becomes nil so the resolver derives the deadline.
func (d *AssetDAO) GetProposal(ctx context.Context, id int64) (domain.Proposal, error) {
	out, err := d.call(ctx, "getProposal", big.NewInt(id))
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("chain: get proposal %d: %w", id, MapRevert(err))
	}
	if len(out) != 12 {
		return domain.Proposal{}, fmt.Errorf("chain: get proposal %d: expected 12 outputs, got %d", id, len(out))
	}

	proposer, _ := out[0].(common.Address)
	proposalType, _ := out[1].(uint8)
	asset, _ := out[2].(common.Address)
	amount, _ := out[3].(*big.Int)
	forVotes, _ := out[4].(*big.Int)
	againstVotes, _ := out[5].(*big.Int)
	createdAt, _ := out[6].(*big.Int)
	votingEnds, _ := out[7].(*big.Int)
	executed, _ := out[8].(bool)
	canceled, _ := out[9].(bool)
	state, _ := out[10].(uint8)
	description, _ := out[11].(string)

	title, body := splitDescription(description)

	p := domain.Proposal{
		ID:           id,
		Proposer:     proposer.Hex(),
		Title:        title,
		Description:  body,
		Type:         governance.InferProposalType(proposalType, title, body),
		AssetAddress: asset.Hex(),
		Amount:       governance.NormalizeVoteValue(amount),
		ForVotes:     governance.NormalizeVoteValue(forVotes),
		AgainstVotes: governance.NormalizeVoteValue(againstVotes),
		Executed:     executed,
		Canceled:     canceled,
		UpdatedAt:    time.Now().UTC(),
	}

	cs := domain.ChainState(state)
	p.ChainState = &cs

	if createdAt != nil && createdAt.Sign() > 0 {
		p.CreatedAt = time.Unix(createdAt.Int64(), 0).UTC()
	}
	if votingEnds != nil && votingEnds.Sign() > 0 {
		ends := time.Unix(votingEnds.Int64(), 0).UTC()
		p.VotingEnds = &ends
	}

	return p, nil
}

// GetProposals fetches the half-open ID range [from, to).
func (d *AssetDAO) GetProposals(ctx context.Context, from, to int64) ([]domain.Proposal, error) {
	ps := make([]domain.Proposal, 0, to-from)
	for id := from; id < to; id++ {
		p, err := d.GetProposal(ctx, id)
		if err != nil {
			return ps, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func (d *AssetDAO) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := d.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("abi: pack %s: %w", method, err)
	}

	var res []byte
	err = d.client.withRetry(ctx, method, func(ctx context.Context) error {
		var callErr error
		res, callErr = d.client.eth.CallContract(ctx, ethereum.CallMsg{
			To:   &d.address,
			Data: data,
		}, nil)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	out, err := d.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("abi: unpack %s: %w", method, err)
	}
	return out, nil
}

// splitDescription derives a display title from the first line of the
// on-chain description. The contract stores a single free-text field.
func splitDescription(desc string) (title, body string) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", ""
	}
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		return strings.TrimSpace(desc[:i]), strings.TrimSpace(desc[i+1:])
	}
	const maxTitle = 120
	if len(desc) > maxTitle {
		return desc[:maxTitle], desc
	}
	return desc, desc
}
