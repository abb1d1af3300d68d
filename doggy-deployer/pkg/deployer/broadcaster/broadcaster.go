package broadcaster

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

const (
	defaultPollInterval = time.Second
	gasHeadroomPercent  = 120
)

var ErrTxReverted = errors.New("transaction reverted")

// EthClient is the subset of ethclient.Client the broadcaster needs.
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type KeyedBroadcasterOpts struct {
	Logger  log.Logger
	ChainID *big.Int
	Client  EthClient
	Key     *ecdsa.PrivateKey
	// GasFeeCap and GasTipCap are suggested by the node when nil.
	GasFeeCap    *big.Int
	GasTipCap    *big.Int
	Metrics      Metricer
	PollInterval time.Duration
}

// KeyedBroadcaster signs and sends transactions one at a time from a single key, waiting
// for each receipt before returning.
type KeyedBroadcaster struct {
	lgr          log.Logger
	chainID      *big.Int
	client       EthClient
	key          *ecdsa.PrivateKey
	from         common.Address
	signer       types.Signer
	gasFeeCap    *big.Int
	gasTipCap    *big.Int
	metrics      Metricer
	pollInterval time.Duration
}

func NewKeyedBroadcaster(cfg KeyedBroadcasterOpts) (*KeyedBroadcaster, error) {
	if cfg.Client == nil {
		return nil, errors.New("client must be specified")
	}
	if cfg.Key == nil {
		return nil, errors.New("private key must be specified")
	}
	if cfg.ChainID == nil {
		return nil, errors.New("chain ID must be specified")
	}
	lgr := cfg.Logger
	if lgr == nil {
		lgr = log.Root()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}
	return &KeyedBroadcaster{
		lgr:          lgr,
		chainID:      cfg.ChainID,
		client:       cfg.Client,
		key:          cfg.Key,
		from:         crypto.PubkeyToAddress(cfg.Key.PublicKey),
		signer:       types.LatestSignerForChainID(cfg.ChainID),
		gasFeeCap:    cfg.GasFeeCap,
		gasTipCap:    cfg.GasTipCap,
		metrics:      metrics,
		pollInterval: pollInterval,
	}, nil
}

func (b *KeyedBroadcaster) From() common.Address {
	return b.from
}

// Deploy sends a contract creation transaction and returns its receipt and the created address.
func (b *KeyedBroadcaster) Deploy(ctx context.Context, initCode []byte) (*types.Receipt, common.Address, error) {
	receipt, err := b.send(ctx, nil, initCode, "deploy")
	if err != nil {
		return nil, common.Address{}, err
	}
	return receipt, receipt.ContractAddress, nil
}

// Call sends data to an existing contract and returns the receipt.
func (b *KeyedBroadcaster) Call(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	return b.send(ctx, &to, data, "call")
}

func (b *KeyedBroadcaster) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	code, err := b.client.CodeAt(ctx, addr, nil)
	if err != nil {
		b.metrics.RPCError()
		return nil, fmt.Errorf("failed to get code at %s: %w", addr, err)
	}
	return code, nil
}

func (b *KeyedBroadcaster) StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	value, err := b.client.StorageAt(ctx, addr, slot, nil)
	if err != nil {
		b.metrics.RPCError()
		return common.Hash{}, fmt.Errorf("failed to get storage %s at %s: %w", slot, addr, err)
	}
	return common.BytesToHash(value), nil
}

// Read executes data against the latest state without sending a transaction.
func (b *KeyedBroadcaster) Read(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := b.client.CallContract(ctx, ethereum.CallMsg{From: b.from, To: &to, Data: data}, nil)
	if err != nil {
		b.metrics.RPCError()
		return nil, fmt.Errorf("failed to call %s: %w", to, err)
	}
	return out, nil
}

func (b *KeyedBroadcaster) send(ctx context.Context, to *common.Address, data []byte, kind string) (*types.Receipt, error) {
	nonce, err := b.client.PendingNonceAt(ctx, b.from)
	if err != nil {
		b.metrics.RPCError()
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	b.metrics.RecordNonce(nonce)

	tipCap, feeCap, err := b.feeCaps(ctx)
	if err != nil {
		return nil, err
	}

	gas, err := b.client.EstimateGas(ctx, ethereum.CallMsg{
		From:      b.from,
		To:        to,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
		Data:      data,
	})
	if err != nil {
		b.metrics.RPCError()
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas = gas * gasHeadroomPercent / 100

	tx, err := types.SignNewTx(b.key, b.signer, &types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        to,
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign tx: %w", err)
	}

	lgr := b.lgr.New("tx", tx.Hash(), "nonce", nonce, "kind", kind)
	lgr.Info("sending transaction", "gas", gas, "gasFeeCap", feeCap, "gasTipCap", tipCap)
	if err := b.client.SendTransaction(ctx, tx); err != nil {
		b.metrics.RPCError()
		return nil, fmt.Errorf("failed to send tx: %w", err)
	}
	b.metrics.TxPublished(kind)

	receipt, err := b.waitForReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, err
	}
	b.metrics.TxConfirmed(receipt)
	if receipt.Status != types.ReceiptStatusSuccessful {
		lgr.Error("transaction reverted", "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, tx.Hash())
	}
	lgr.Info("transaction confirmed", "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
	return receipt, nil
}

func (b *KeyedBroadcaster) feeCaps(ctx context.Context) (*big.Int, *big.Int, error) {
	tipCap := b.gasTipCap
	if tipCap == nil {
		suggested, err := b.client.SuggestGasTipCap(ctx)
		if err != nil {
			b.metrics.RPCError()
			return nil, nil, fmt.Errorf("failed to suggest gas tip cap: %w", err)
		}
		tipCap = suggested
	}
	feeCap := b.gasFeeCap
	if feeCap == nil {
		head, err := b.client.HeaderByNumber(ctx, nil)
		if err != nil {
			b.metrics.RPCError()
			return nil, nil, fmt.Errorf("failed to get head: %w", err)
		}
		if head.BaseFee == nil {
			return nil, nil, errors.New("pre-london blocks without a base fee are not supported")
		}
		// Leaves room for the base fee to double before the tx gets priced out.
		feeCap = new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	if feeCap.Cmp(tipCap) < 0 {
		return nil, nil, fmt.Errorf("gas fee cap %s is below gas tip cap %s", feeCap, tipCap)
	}
	return tipCap, feeCap, nil
}

func (b *KeyedBroadcaster) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := b.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			b.metrics.RPCError()
			return nil, fmt.Errorf("failed to get receipt for %s: %w", txHash, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stopped waiting for receipt of %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}
