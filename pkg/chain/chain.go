// Package chain wraps the Polygon contracts a trading wallet touches
// directly: collateral and outcome-token approvals for the exchange, token
// balances, and redemption of resolved positions.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/pooofdevelopment/clob-trader/pkg/config"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// Backend is what the helpers need from an RPC connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// allowanceFloor is the allowance below which collateral is re-approved
var allowanceFloor = new(big.Int).Rsh(math.MaxBig256, 1)

// Client sends calls and transactions from one wallet
type Client struct {
	backend Backend
	chainID *big.Int
	key     *ecdsa.PrivateKey
	from    common.Address
	logger  *zap.Logger

	standard *types.ContractConfig
	negRisk  *types.ContractConfig
}

// Dial connects to rpcURL and returns a Client for key
func Dial(ctx context.Context, rpcURL string, chainID int64, key *ecdsa.PrivateKey, logger *zap.Logger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc: %w", err)
	}
	return New(ec, chainID, key, logger)
}

// New returns a Client over an existing backend
func New(backend Backend, chainID int64, key *ecdsa.PrivateKey, logger *zap.Logger) (*Client, error) {
	standard, err := config.GetContractConfig(chainID, false)
	if err != nil {
		return nil, err
	}
	negRisk, err := config.GetContractConfig(chainID, true)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		backend:  backend,
		chainID:  big.NewInt(chainID),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		logger:   logger,
		standard: standard,
		negRisk:  negRisk,
	}, nil
}

// Address returns the sending wallet
func (c *Client) Address() common.Address {
	return c.from
}

func (c *Client) contract(address string, parsed abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(common.HexToAddress(address), parsed, c.backend, c.backend, c.backend)
}

func (c *Client) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: c.from}
}

func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

func (c *Client) callBig(ctx context.Context, bc *bind.BoundContract, method string, args ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := bc.Call(c.callOpts(ctx), &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// CollateralAllowance returns the collateral allowance granted to spender
func (c *Client) CollateralAllowance(ctx context.Context, spender common.Address) (*big.Int, error) {
	return c.callBig(ctx, c.contract(c.standard.Collateral, erc20ABI), "allowance", c.from, spender)
}

// ApproveCollateral sets the collateral allowance of spender
func (c *Client) ApproveCollateral(ctx context.Context, spender common.Address, amount *big.Int) (*gethtypes.Transaction, error) {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := c.contract(c.standard.Collateral, erc20ABI).Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("approve: %w", err)
	}
	c.logger.Info("collateral approval sent", zap.String("spender", spender.Hex()), zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

// CollateralBalance returns the wallet's collateral in base units
func (c *Client) CollateralBalance(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, c.contract(c.standard.Collateral, erc20ABI), "balanceOf", c.from)
}

// IsApprovedForAll reports whether operator may move the wallet's outcome tokens
func (c *Client) IsApprovedForAll(ctx context.Context, operator common.Address) (bool, error) {
	var out []interface{}
	if err := c.contract(c.standard.ConditionalTokens, erc1155ABI).Call(c.callOpts(ctx), &out, "isApprovedForAll", c.from, operator); err != nil {
		return false, fmt.Errorf("isApprovedForAll: %w", err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// SetApprovalForAll grants or revokes operator on the outcome tokens
func (c *Client) SetApprovalForAll(ctx context.Context, operator common.Address, approved bool) (*gethtypes.Transaction, error) {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := c.contract(c.standard.ConditionalTokens, erc1155ABI).Transact(opts, "setApprovalForAll", operator, approved)
	if err != nil {
		return nil, fmt.Errorf("setApprovalForAll: %w", err)
	}
	c.logger.Info("token approval sent", zap.String("operator", operator.Hex()), zap.Bool("approved", approved), zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

// TokenBalance returns the wallet's balance of an outcome token
func (c *Client) TokenBalance(ctx context.Context, tokenID *big.Int) (*big.Int, error) {
	return c.callBig(ctx, c.contract(c.standard.ConditionalTokens, erc1155ABI), "balanceOf", c.from, tokenID)
}

// RedeemPositions redeems resolved outcome tokens of conditionID for
// collateral. indexSets defaults to both outcomes of a binary market.
func (c *Client) RedeemPositions(ctx context.Context, conditionID common.Hash, indexSets []*big.Int) (*gethtypes.Transaction, error) {
	if len(indexSets) == 0 {
		indexSets = []*big.Int{big.NewInt(1), big.NewInt(2)}
	}
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := c.contract(c.standard.ConditionalTokens, ctfABI).Transact(opts, "redeemPositions",
		common.HexToAddress(c.standard.Collateral), common.Hash{}, conditionID, indexSets)
	if err != nil {
		return nil, fmt.Errorf("redeemPositions: %w", err)
	}
	c.logger.Info("redeem sent", zap.String("condition_id", conditionID.Hex()), zap.String("tx", tx.Hash().Hex()))
	return tx, nil
}

// spenders returns the contracts that move funds when an order fills
func (c *Client) spenders(negRisk bool) []common.Address {
	out := []common.Address{common.HexToAddress(c.standard.Exchange)}
	if negRisk {
		out = append(out,
			common.HexToAddress(c.negRisk.Exchange),
			common.HexToAddress(c.negRisk.NegRiskAdapter))
	}
	return out
}

// EnsureTradingApprovals grants collateral allowance and outcome-token
// approval to every contract an order on this kind of market settles
// through. Approvals already in place are skipped; the sent transactions
// are returned unmined.
func (c *Client) EnsureTradingApprovals(ctx context.Context, negRisk bool) ([]*gethtypes.Transaction, error) {
	var txs []*gethtypes.Transaction
	seen := make(map[common.Address]bool)

	for _, spender := range c.spenders(negRisk) {
		if seen[spender] {
			continue
		}
		seen[spender] = true

		allowance, err := c.CollateralAllowance(ctx, spender)
		if err != nil {
			return txs, err
		}
		if allowance.Cmp(allowanceFloor) < 0 {
			tx, err := c.ApproveCollateral(ctx, spender, math.MaxBig256)
			if err != nil {
				return txs, err
			}
			txs = append(txs, tx)
		}

		approved, err := c.IsApprovedForAll(ctx, spender)
		if err != nil {
			return txs, err
		}
		if !approved {
			tx, err := c.SetApprovalForAll(ctx, spender, true)
			if err != nil {
				return txs, err
			}
			txs = append(txs, tx)
		}
	}

	c.logger.Info("trading approvals checked", zap.Bool("neg_risk", negRisk), zap.Int("sent", len(txs)))
	return txs, nil
}

// WaitMined blocks until tx is mined and fails on a reverted receipt
func (c *Client) WaitMined(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}
