package game

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/predictbot/internal/chain"
	"github.com/alanyoungcy/predictbot/internal/domain"
)

// receiptPollInterval is how often WaitMined re-checks for a receipt.
const receiptPollInterval = time.Second

// gasLimitMargin pads the node's gas estimate to survive small state drift
// between estimation and inclusion.
const gasLimitMargin = 120 // percent

// Gateway is the typed façade over the deployed game contract. Reads go
// through eth_call; writes are signed locally and broadcast. The private key
// may be nil for read-only deployments, in which case submitting methods
// return domain.ErrNoAccount.
type Gateway struct {
	client   chain.Client
	contract common.Address
	decoder  *Decoder
	chainID  *big.Int
	signer   types.Signer
	key      *ecdsa.PrivateKey
	from     common.Address
	logger   *slog.Logger
}

// NewGateway builds a Gateway bound to one contract on one chain.
func NewGateway(client chain.Client, contract common.Address, chainID *big.Int, key *ecdsa.PrivateKey, logger *slog.Logger) *Gateway {
	g := &Gateway{
		client:   client,
		contract: contract,
		decoder:  NewDecoder(contract),
		chainID:  chainID,
		signer:   types.LatestSignerForChainID(chainID),
		key:      key,
		logger:   logger.With("component", "game.gateway"),
	}
	if key != nil {
		g.from = ethcrypto.PubkeyToAddress(key.PublicKey)
	}
	return g
}

// From returns the submitting wallet address (zero if read-only).
func (g *Gateway) From() common.Address { return g.from }

// Decoder returns the log decoder bound to this contract.
func (g *Gateway) Decoder() *Decoder { return g.decoder }

// ChainID returns the chain id reported by the connected node.
func (g *Gateway) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := g.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("game: chain id: %w: %v", domain.ErrTransport, err)
	}
	return id, nil
}

// Balance returns the native balance of the submitting wallet.
func (g *Gateway) Balance(ctx context.Context) (*big.Int, error) {
	if g.key == nil {
		return nil, domain.ErrNoAccount
	}
	bal, err := g.client.BalanceAt(ctx, g.from, nil)
	if err != nil {
		return nil, fmt.Errorf("game: balance: %w: %v", domain.ErrTransport, err)
	}
	return bal, nil
}

// ---------------------------------------------------------------------------
// Contract reads
// ---------------------------------------------------------------------------

// callView packs the method call, executes it via eth_call and unpacks the
// raw return data.
func (g *Gateway) callView(ctx context.Context, method string, args ...any) ([]any, error) {
	input, err := gameABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("game: pack %s: %w", method, err)
	}

	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("game: call %s: %w: %v", method, classifyCallError(err), err)
	}

	vals, err := gameABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("game: unpack %s: %w", method, err)
	}
	return vals, nil
}

// classifyCallError maps an RPC error to the domain sentinel it represents.
// Node implementations disagree on revert error shapes, so this falls back to
// substring matching.
func classifyCallError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert") {
		return domain.ErrRejectedByContract
	}
	return domain.ErrTransport
}

// Owner returns the contract owner address.
func (g *Gateway) Owner(ctx context.Context) (common.Address, error) {
	vals, err := g.callView(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(vals[0], new(common.Address)).(*common.Address), nil
}

// TotalFee returns the per-guess fee in wei.
func (g *Gateway) TotalFee(ctx context.Context) (*big.Int, error) {
	vals, err := g.callView(ctx, "TOTAL_FEE")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(vals[0], new(*big.Int)).(**big.Int), nil
}

// PrizePool returns the current prize pool balance in wei.
func (g *Gateway) PrizePool(ctx context.Context) (*big.Int, error) {
	vals, err := g.callView(ctx, "getPrizePool")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(vals[0], new(*big.Int)).(**big.Int), nil
}

// SupportedCryptos returns the asset identifiers guesses may target.
func (g *Gateway) SupportedCryptos(ctx context.Context) ([]string, error) {
	vals, err := g.callView(ctx, "getSupportedCryptos")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(vals[0], new([]string)).(*[]string), nil
}

// GameInfo assembles the public contract parameters into one snapshot.
func (g *Gateway) GameInfo(ctx context.Context) (domain.GameInfo, error) {
	pool, err := g.PrizePool(ctx)
	if err != nil {
		return domain.GameInfo{}, err
	}
	fee, err := g.TotalFee(ctx)
	if err != nil {
		return domain.GameInfo{}, err
	}
	cryptos, err := g.SupportedCryptos(ctx)
	if err != nil {
		return domain.GameInfo{}, err
	}
	owner, err := g.Owner(ctx)
	if err != nil {
		return domain.GameInfo{}, err
	}
	return domain.GameInfo{
		PrizePool:        pool,
		TotalFee:         fee,
		SupportedCryptos: cryptos,
		Owner:            owner.Hex(),
		FetchedAt:        time.Now().UTC(),
	}, nil
}

type playerStatsResult struct {
	TotalGuesses    *big.Int
	Wins            *big.Int
	TotalWinnings   *big.Int
	BestAccuracyBps *big.Int
}

// PlayerStats returns the contract's aggregate counters for a player.
func (g *Gateway) PlayerStats(ctx context.Context, player common.Address) (domain.PlayerStats, error) {
	vals, err := g.callView(ctx, "getPlayerStats", player)
	if err != nil {
		return domain.PlayerStats{}, err
	}
	raw := *abi.ConvertType(vals[0], new(playerStatsResult)).(*playerStatsResult)
	return domain.PlayerStats{
		TotalGuesses:    raw.TotalGuesses.Uint64(),
		Wins:            raw.Wins.Uint64(),
		TotalWinnings:   raw.TotalWinnings,
		BestAccuracyBps: raw.BestAccuracyBps.Uint64(),
	}, nil
}

// CooldownRemaining returns how long until the player may guess again. Zero
// means no active cooldown.
func (g *Gateway) CooldownRemaining(ctx context.Context, player common.Address) (time.Duration, error) {
	vals, err := g.callView(ctx, "getCooldownRemaining", player)
	if err != nil {
		return 0, err
	}
	secs := *abi.ConvertType(vals[0], new(*big.Int)).(**big.Int)
	return time.Duration(secs.Int64()) * time.Second, nil
}

type pendingGuessResult struct {
	Player       common.Address
	Crypto       string
	GuessedPrice *big.Int
	Timestamp    *big.Int
	Resolved     bool
}

// PendingGuess reads the contract's pending-guess record for a requestId.
func (g *Gateway) PendingGuess(ctx context.Context, requestID *big.Int) (domain.GuessRequest, error) {
	vals, err := g.callView(ctx, "getPendingGuess", requestID)
	if err != nil {
		return domain.GuessRequest{}, err
	}
	raw := *abi.ConvertType(vals[0], new(pendingGuessResult)).(*pendingGuessResult)
	return domain.GuessRequest{
		RequestID:    requestID,
		Player:       raw.Player.Hex(),
		Crypto:       raw.Crypto,
		GuessedPrice: raw.GuessedPrice,
		SubmittedAt:  time.Unix(raw.Timestamp.Int64(), 0).UTC(),
		Resolved:     raw.Resolved,
	}, nil
}

// ---------------------------------------------------------------------------
// Contract writes
// ---------------------------------------------------------------------------

// SubmitGuess signs and broadcasts a guess transaction carrying the entry fee
// as value. When testPath is true the owner-only testGuess method is used
// instead, which resolves with a deterministic price.
func (g *Gateway) SubmitGuess(ctx context.Context, crypto string, scaledPrice, fee *big.Int, testPath bool) (common.Hash, error) {
	method := "guess"
	if testPath {
		method = "testGuess"
	}
	return g.submit(ctx, method, fee, crypto, scaledPrice)
}

// FundPool signs and broadcasts an owner deposit into the prize pool.
func (g *Gateway) FundPool(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return g.submit(ctx, "fundPool", amount)
}

func (g *Gateway) submit(ctx context.Context, method string, value *big.Int, args ...any) (common.Hash, error) {
	if g.key == nil {
		return common.Hash{}, fmt.Errorf("game: submit %s: %w", method, domain.ErrNoAccount)
	}

	input, err := gameABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("game: pack %s: %w", method, err)
	}

	nonce, err := g.client.PendingNonceAt(ctx, g.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("game: nonce: %w: %v", domain.ErrTransport, err)
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("game: gas price: %w: %v", domain.ErrTransport, err)
	}

	msg := ethereum.CallMsg{From: g.from, To: &g.contract, Value: value, Data: input}
	gasLimit, err := g.client.EstimateGas(ctx, msg)
	if err != nil {
		// Estimation executes the call, so a revert surfaces here before
		// anything is broadcast.
		return common.Hash{}, fmt.Errorf("game: estimate %s: %w: %v", method, classifyCallError(err), err)
	}
	gasLimit = gasLimit * gasLimitMargin / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &g.contract,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     input,
	})
	signed, err := types.SignTx(tx, g.signer, g.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("game: sign %s: %w", method, err)
	}

	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("game: send %s: %w: %v", method, classifyCallError(err), err)
	}

	g.logger.Info("transaction broadcast",
		"method", method,
		"tx_hash", signed.Hash().Hex(),
		"nonce", nonce,
		"gas_limit", gasLimit)
	return signed.Hash(), nil
}

// WaitMined blocks until the transaction is mined or ctx ends. A mined
// transaction with a failed status returns the receipt together with
// domain.ErrRejectedByContract.
func (g *Gateway) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.client.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("game: tx %s: %w", txHash.Hex(), domain.ErrRejectedByContract)
			}
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			// Not mined yet.
		default:
			return nil, fmt.Errorf("game: receipt %s: %w: %v", txHash.Hex(), domain.ErrTransport, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("game: wait mined: %w: %v", domain.ErrContextDone, ctx.Err())
		case <-ticker.C:
		}
	}
}

// ResolutionEvents queries GuessResolved logs for one requestId starting at
// fromBlock, filtering on the requestId topic.
func (g *Gateway) ResolutionEvents(ctx context.Context, requestID *big.Int, fromBlock uint64) ([]domain.Resolution, error) {
	logs, err := g.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{g.contract},
		Topics: [][]common.Hash{
			{g.decoder.GuessResolvedTopic()},
			{common.BigToHash(requestID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("game: filter resolutions: %w: %v", domain.ErrTransport, err)
	}

	out := make([]domain.Resolution, 0, len(logs))
	for _, lg := range logs {
		if res, ok := g.decoder.GuessResolved(lg); ok {
			out = append(out, res)
		}
	}
	return out, nil
}
