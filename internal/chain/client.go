// Package chain wraps read and transaction-submitting access to the EVM
// chain behind a narrow interface so higher layers can be tested without a
// node.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/predictbot/internal/domain"
)

// Client is the subset of RPC operations the gateway and coordinator need.
// *ethclient.Client satisfies it directly.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Dial connects to the RPC endpoint and verifies the remote chain id against
// the expected one. A mismatch fails with domain.ErrWrongNetwork so a
// misconfigured endpoint is caught at startup rather than at submission time.
func Dial(ctx context.Context, rpcURL string, wantChainID int64) (*ethclient.Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	id, err := ec.ChainID(ctx)
	if err != nil {
		ec.Close()
		return nil, fmt.Errorf("chain: read chain id: %w: %v", domain.ErrTransport, err)
	}
	if id.Int64() != wantChainID {
		ec.Close()
		return nil, fmt.Errorf("chain: %w: got chain id %d, want %d", domain.ErrWrongNetwork, id.Int64(), wantChainID)
	}

	return ec, nil
}

var _ Client = (*ethclient.Client)(nil)
