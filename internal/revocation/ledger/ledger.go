// Package ledger talks to the credential registry contract on an EVM chain.
//
// The contract exposes registerVCHash(bytes32), revokeVCHash(bytes32) and
// isVCRevoked(bytes32) returns (bool). Writes are signed locally and submitted
// as legacy transactions; the returned reference is the transaction hash.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"pixelgenesis/internal/revocation"
)

// RegistryABI is the subset of the credential registry contract this client calls.
const RegistryABI = `[
	{"inputs":[{"internalType":"bytes32","name":"vcHash","type":"bytes32"}],"name":"registerVCHash","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"bytes32","name":"vcHash","type":"bytes32"}],"name":"revokeVCHash","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"bytes32","name":"vcHash","type":"bytes32"}],"name":"isVCRevoked","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"}
]`

const (
	methodRegister  = "registerVCHash"
	methodRevoke    = "revokeVCHash"
	methodIsRevoked = "isVCRevoked"
)

const defaultGasLimit = 100_000

// Backend is the JSON-RPC surface the client needs. *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Client is a revocation.Oracle backed by the registry contract.
type Client struct {
	backend  Backend
	contract common.Address
	abi      abi.ABI
	key      *ecdsa.PrivateKey
	from     common.Address
	signer   types.Signer
	gasLimit uint64

	// mu serializes nonce allocation and submission for the sending account.
	mu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithGasLimit overrides the per-transaction gas limit.
func WithGasLimit(limit uint64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.gasLimit = limit
		}
	}
}

// New builds a client for the contract at contractHex, signing with keyHex on chainID.
func New(backend Backend, contractHex, keyHex string, chainID int64, opts ...Option) (*Client, error) {
	if !common.IsHexAddress(contractHex) {
		return nil, fmt.Errorf("invalid contract address %q", contractHex)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse ledger private key: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(RegistryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	c := &Client{
		backend:  backend,
		contract: common.HexToAddress(contractHex),
		abi:      parsed,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		signer:   types.LatestSignerForChainID(big.NewInt(chainID)),
		gasLimit: defaultGasLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// From returns the sending account.
func (c *Client) From() common.Address {
	return c.from
}

func (c *Client) Register(ctx context.Context, key revocation.Key) (string, error) {
	return c.transact(ctx, methodRegister, key)
}

func (c *Client) Revoke(ctx context.Context, key revocation.Key) (string, error) {
	return c.transact(ctx, methodRevoke, key)
}

func (c *Client) IsRevoked(ctx context.Context, key revocation.Key) (bool, error) {
	data, err := c.abi.Pack(methodIsRevoked, [32]byte(key))
	if err != nil {
		return false, fmt.Errorf("pack %s: %w", methodIsRevoked, err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &c.contract, Data: data}, nil)
	if err != nil {
		return false, revocation.Unavailable(methodIsRevoked, err)
	}
	values, err := c.abi.Unpack(methodIsRevoked, out)
	if err != nil {
		return false, revocation.Unavailable(methodIsRevoked, fmt.Errorf("unpack result: %w", err))
	}
	if len(values) != 1 {
		return false, revocation.Unavailable(methodIsRevoked, errors.New("unexpected result arity"))
	}
	revoked, ok := values[0].(bool)
	if !ok {
		return false, revocation.Unavailable(methodIsRevoked, fmt.Errorf("unexpected result type %T", values[0]))
	}
	return revoked, nil
}

func (c *Client) transact(ctx context.Context, method string, key revocation.Key) (string, error) {
	data, err := c.abi.Pack(method, [32]byte(key))
	if err != nil {
		return "", fmt.Errorf("pack %s: %w", method, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", revocation.Unavailable(method, fmt.Errorf("nonce: %w", err))
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", revocation.Unavailable(method, fmt.Errorf("gas price: %w", err))
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), c.gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, c.signer, c.key)
	if err != nil {
		return "", fmt.Errorf("sign %s transaction: %w", method, err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", revocation.Unavailable(method, fmt.Errorf("send: %w", err))
	}
	return signed.Hash().Hex(), nil
}
