package utils

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// TokenBackend is what the token client needs from an RPC connection.
// *ethclient.Client satisfies it.
type TokenBackend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type TokenOptions struct {
	GasLimit       uint64
	CallTimeout    time.Duration
	ConfirmTimeout time.Duration
	Logger         echo.Logger
}

// TokenClient talks to the token contract on behalf of the operating wallet.
type TokenClient struct {
	backend        TokenBackend
	contract       *bind.BoundContract
	address        common.Address
	operator       common.Address
	auth           *bind.TransactOpts
	chainID        *big.Int
	gasLimit       uint64
	callTimeout    time.Duration
	confirmTimeout time.Duration
	logger         echo.Logger

	// sendMu spans nonce lookup through broadcast for the operating wallet.
	sendMu sync.Mutex

	mu        sync.Mutex
	lastError string
	lastBlock uint64
	lastCheck time.Time
}

type HealthStatus struct {
	IsHealthy   bool      `json:"isHealthy"`
	ChainID     string    `json:"chainId"`
	Contract    string    `json:"contract"`
	Operator    string    `json:"operator"`
	LatestBlock uint64    `json:"latestBlock"`
	CheckedAt   time.Time `json:"checkedAt"`
	LastError   string    `json:"lastError,omitempty"`
}

// DialTokenClient connects to rpcURL and loads the operating wallet key.
func DialTokenClient(ctx context.Context, rpcURL, contractHex, privateKeyHex string, opts TokenOptions) (*TokenClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum client: %w", err)
	}
	return NewTokenClient(ctx, client, contractHex, privateKeyHex, opts)
}

func NewTokenClient(ctx context.Context, backend TokenBackend, contractHex, privateKeyHex string, opts TokenOptions) (*TokenClient, error) {
	if !common.IsHexAddress(contractHex) {
		return nil, fmt.Errorf("invalid token contract address %q", contractHex)
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	chainCtx, cancel := context.WithTimeout(ctx, withDefault(opts.CallTimeout, 15*time.Second))
	defer cancel()
	chainID, err := backend.ChainID(chainCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New("token")
	}

	address := common.HexToAddress(contractHex)
	return &TokenClient{
		backend:        backend,
		contract:       bind.NewBoundContract(address, parsed, backend, backend, backend),
		address:        address,
		operator:       crypto.PubkeyToAddress(*publicKeyECDSA),
		auth:           auth,
		chainID:        chainID,
		gasLimit:       opts.GasLimit,
		callTimeout:    withDefault(opts.CallTimeout, 15*time.Second),
		confirmTimeout: withDefault(opts.ConfirmTimeout, 3*time.Minute),
		logger:         logger,
	}, nil
}

func withDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (c *TokenClient) Operator() common.Address {
	return c.operator
}

func (c *TokenClient) Address() common.Address {
	return c.address
}

// Health reads the chain head and records the outcome for later snapshots.
func (c *TokenClient) Health(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	block, err := c.backend.BlockNumber(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastCheck = time.Now()
	if err != nil {
		c.lastError = err.Error()
	} else {
		c.lastBlock = block
		c.lastError = ""
	}

	return HealthStatus{
		IsHealthy:   err == nil,
		ChainID:     c.chainID.String(),
		Contract:    c.address.Hex(),
		Operator:    c.operator.Hex(),
		LatestBlock: c.lastBlock,
		CheckedAt:   c.lastCheck,
		LastError:   c.lastError,
	}
}
