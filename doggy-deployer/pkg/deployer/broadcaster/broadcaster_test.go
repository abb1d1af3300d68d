package broadcaster

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/doggyprojects/contracts/doggy-service/testlog"
)

type fakeClient struct {
	nonce         uint64
	gas           uint64
	baseFee       *big.Int
	tip           *big.Int
	sendErr       error
	notFoundCount int
	status        uint64
	contract      common.Address

	sent     []*types.Transaction
	receipts int
}

func (f *fakeClient) ChainID(context.Context) (*big.Int, error) { return big.NewInt(900), nil }

func (f *fakeClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.gas, nil
}

func (f *fakeClient) SuggestGasTipCap(context.Context) (*big.Int, error) { return f.tip, nil }

func (f *fakeClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeClient) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.receipts++
	if f.receipts <= f.notFoundCount {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{
		Status:          f.status,
		TxHash:          txHash,
		ContractAddress: f.contract,
		GasUsed:         21000,
		BlockNumber:     big.NewInt(1),
	}, nil
}

func (f *fakeClient) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x00}, nil
}

func (f *fakeClient) StorageAt(context.Context, common.Address, common.Hash, *big.Int) ([]byte, error) {
	return make([]byte, 32), nil
}

func (f *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return append([]byte{}, msg.Data...), nil
}

func newFakeBroadcaster(t *testing.T, client *fakeClient) *KeyedBroadcaster {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	bcast, err := NewKeyedBroadcaster(KeyedBroadcasterOpts{
		Logger:       testlog.Logger(t, log.LevelDebug),
		ChainID:      big.NewInt(900),
		Client:       client,
		Key:          key,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return bcast
}

func TestKeyedBroadcasterDeploy(t *testing.T) {
	contract := common.HexToAddress("0x1111111111111111111111111111111111111111")
	client := &fakeClient{
		nonce:         7,
		gas:           100_000,
		baseFee:       big.NewInt(10),
		tip:           big.NewInt(2),
		notFoundCount: 2,
		status:        types.ReceiptStatusSuccessful,
		contract:      contract,
	}
	bcast := newFakeBroadcaster(t, client)

	receipt, addr, err := bcast.Deploy(context.Background(), []byte{0x60, 0x00})
	require.NoError(t, err)
	require.Equal(t, contract, addr)
	require.Equal(t, 3, client.receipts)

	require.Len(t, client.sent, 1)
	tx := client.sent[0]
	require.Equal(t, receipt.TxHash, tx.Hash())
	require.Nil(t, tx.To())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, uint64(120_000), tx.Gas())
	require.Equal(t, big.NewInt(2), tx.GasTipCap())
	require.Equal(t, big.NewInt(22), tx.GasFeeCap())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(900)), tx)
	require.NoError(t, err)
	require.Equal(t, bcast.From(), sender)
}

func TestKeyedBroadcasterConfiguredFeeCaps(t *testing.T) {
	client := &fakeClient{gas: 50_000, status: types.ReceiptStatusSuccessful}
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	bcast, err := NewKeyedBroadcaster(KeyedBroadcasterOpts{
		Logger:    testlog.Logger(t, log.LevelDebug),
		ChainID:   big.NewInt(900),
		Client:    client,
		Key:       key,
		GasFeeCap: big.NewInt(100),
		GasTipCap: big.NewInt(5),
	})
	require.NoError(t, err)

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	_, err = bcast.Call(context.Background(), to, []byte{0x01})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	require.Equal(t, &to, client.sent[0].To())
	require.Equal(t, big.NewInt(100), client.sent[0].GasFeeCap())
	require.Equal(t, big.NewInt(5), client.sent[0].GasTipCap())
}

func TestKeyedBroadcasterErrors(t *testing.T) {
	t.Run("reverted", func(t *testing.T) {
		client := &fakeClient{gas: 50_000, baseFee: big.NewInt(1), tip: big.NewInt(1), status: types.ReceiptStatusFailed}
		receipt, err := newFakeBroadcaster(t, client).Call(context.Background(), common.Address{0x01}, nil)
		require.ErrorIs(t, err, ErrTxReverted)
		require.NotNil(t, receipt)
	})

	t.Run("send failure", func(t *testing.T) {
		sendErr := errors.New("nonce too low")
		client := &fakeClient{gas: 50_000, baseFee: big.NewInt(1), tip: big.NewInt(1), sendErr: sendErr}
		_, _, err := newFakeBroadcaster(t, client).Deploy(context.Background(), []byte{0x60})
		require.ErrorIs(t, err, sendErr)
		require.Zero(t, client.receipts)
	})

	t.Run("pre-london", func(t *testing.T) {
		client := &fakeClient{gas: 50_000, tip: big.NewInt(1)}
		_, _, err := newFakeBroadcaster(t, client).Deploy(context.Background(), []byte{0x60})
		require.ErrorContains(t, err, "base fee")
		require.Empty(t, client.sent)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		client := &fakeClient{gas: 50_000, baseFee: big.NewInt(1), tip: big.NewInt(1), notFoundCount: 1 << 30}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, _, err := newFakeBroadcaster(t, client).Deploy(ctx, []byte{0x60})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewKeyedBroadcasterValidation(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	_, err = NewKeyedBroadcaster(KeyedBroadcasterOpts{ChainID: big.NewInt(1), Key: key})
	require.ErrorContains(t, err, "client")
	_, err = NewKeyedBroadcaster(KeyedBroadcasterOpts{ChainID: big.NewInt(1), Client: &fakeClient{}})
	require.ErrorContains(t, err, "private key")
	_, err = NewKeyedBroadcaster(KeyedBroadcasterOpts{Client: &fakeClient{}, Key: key})
	require.ErrorContains(t, err, "chain ID")
}

func TestKeyedBroadcasterSimulatedBackend(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	backend := simulated.NewBackend(types.GenesisAlloc{
		from: {Balance: new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18))},
	})
	t.Cleanup(func() {
		require.NoError(t, backend.Close())
	})
	client := backend.Client()
	chainID, err := client.ChainID(context.Background())
	require.NoError(t, err)

	metrics := NewMetrics()
	bcast, err := NewKeyedBroadcaster(KeyedBroadcasterOpts{
		Logger:       testlog.Logger(t, log.LevelDebug),
		ChainID:      chainID,
		Client:       client,
		Key:          key,
		Metrics:      metrics,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()

	// Returns a single zero byte as runtime code.
	initCode := common.FromHex("0x600060005360016000f3")
	receipt, addr, err := bcast.Deploy(ctx, initCode)
	close(done)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Equal(t, crypto.CreateAddress(from, 0), addr)

	code, err := bcast.CodeAt(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, code)

	value, err := bcast.StorageAt(ctx, addr, common.Hash{})
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, value)

	// The runtime code stops immediately, so the call returns nothing.
	out, err := bcast.Read(ctx, addr, []byte{0x01})
	require.NoError(t, err)
	require.Empty(t, out)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["doggy_deployer_tx_published_total"])
	require.True(t, names["doggy_deployer_tx_confirmed_total"])
}
