package utils

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/models"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TokenABI is the subset of the token contract the service calls.
const TokenABI = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

var (
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransactionReverted = errors.New("transaction reverted")
)

// ParseWalletAddress accepts a 0x-prefixed 20-byte hex address. Mixed-case
// input must carry a valid EIP-55 checksum.
func ParseWalletAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return common.Address{}, ErrInvalidAddress
	}
	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != s {
		return common.Address{}, ErrInvalidAddress
	}
	if addr == (common.Address{}) {
		return common.Address{}, ErrInvalidAddress
	}
	return addr, nil
}

// ScaleAmount converts whole tokens into base units.
func ScaleAmount(tokens int64, decimals uint8) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(tokens), scale)
}

// DeliveryPlan is the outcome of the mint-or-transfer decision for one attempt.
type DeliveryPlan struct {
	Mode      models.DeliveryMode
	Recipient common.Address
	Amount    *big.Int
	Decimals  uint8
}

func (p *DeliveryPlan) String() string {
	return fmt.Sprintf("%s %s units to %s", p.Mode, p.Amount, p.Recipient.Hex())
}

func (c *TokenClient) Decimals(ctx context.Context) (uint8, error) {
	var out []interface{}
	if err := c.call(ctx, &out, "decimals"); err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

func (c *TokenClient) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.call(ctx, &out, "balanceOf", account); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *TokenClient) Owner(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := c.call(ctx, &out, "owner"); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (c *TokenClient) call(ctx context.Context, out *[]interface{}, method string, params ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := c.contract.Call(&bind.CallOpts{Context: ctx, From: c.operator}, out, method, params...); err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	return nil
}

// PlanDelivery decides between minting and transferring. It only reads chain
// state and is evaluated fresh on every attempt since ownership can change.
func (c *TokenClient) PlanDelivery(ctx context.Context, recipient common.Address, tokens int64) (*DeliveryPlan, error) {
	decimals, err := c.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	plan := &DeliveryPlan{
		Recipient: recipient,
		Amount:    ScaleAmount(tokens, decimals),
		Decimals:  decimals,
	}

	owner, err := c.Owner(ctx)
	if err != nil {
		return nil, err
	}
	if owner == c.operator {
		plan.Mode = models.DeliveryModeMint
		return plan, nil
	}

	balance, err := c.BalanceOf(ctx, c.operator)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(plan.Amount) < 0 {
		return nil, fmt.Errorf("%w: operator holds %s, need %s", ErrInsufficientBalance, balance, plan.Amount)
	}
	plan.Mode = models.DeliveryModeTransfer
	return plan, nil
}

// Submit signs and broadcasts the mint or transfer call. Submissions are
// serialized so concurrent deliveries never share a pending nonce.
func (c *TokenClient) Submit(ctx context.Context, plan *DeliveryPlan) (*types.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	opts := *c.auth
	opts.Context = ctx
	opts.GasLimit = c.gasLimit

	var method string
	switch plan.Mode {
	case models.DeliveryModeMint:
		method = "mint"
	case models.DeliveryModeTransfer:
		method = "transfer"
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", plan.Mode)
	}

	c.sendMu.Lock()
	tx, err := c.contract.Transact(&opts, method, plan.Recipient, plan.Amount)
	c.sendMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send %s transaction: %w", method, err)
	}
	return tx, nil
}

// WaitConfirmed blocks until the transaction is included in one block.
func (c *TokenClient) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// Deliver submits the planned call and waits for its receipt.
func (c *TokenClient) Deliver(ctx context.Context, plan *DeliveryPlan) (*types.Receipt, error) {
	tx, err := c.Submit(ctx, plan)
	if err != nil {
		return nil, err
	}
	c.logger.Infof("📤 %s sent: %s", plan, tx.Hash().Hex())
	return c.WaitConfirmed(ctx, tx)
}
