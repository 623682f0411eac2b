package ens

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// BaseRegistrarABI is the read-only subset of the ENS .eth BaseRegistrar ABI.
const BaseRegistrarABI = `[
{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"id","type":"uint256"}],"name":"nameExpires","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// Oracle is the read-only view of the name registrar.
type Oracle interface {
	OwnerOf(ctx context.Context, id *big.Int) (common.Address, error)
	// NameExpires returns the expiry in whole seconds since epoch.
	NameExpires(ctx context.Context, id *big.Int) (*big.Int, error)
}

// BaseRegistrarCaller is a read-only binding around the BaseRegistrar contract.
type BaseRegistrarCaller struct {
	contract *bind.BoundContract
}

func NewBaseRegistrarCaller(address common.Address, caller bind.ContractCaller) (*BaseRegistrarCaller, error) {
	parsed, err := abi.JSON(strings.NewReader(BaseRegistrarABI))
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(address, parsed, caller, nil, nil)
	return &BaseRegistrarCaller{contract: contract}, nil
}

func (c *BaseRegistrarCaller) OwnerOf(opts *bind.CallOpts, tokenId *big.Int) (common.Address, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "ownerOf", tokenId)
	if err != nil {
		return *new(common.Address), err
	}
	out0 := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return out0, nil
}

func (c *BaseRegistrarCaller) NameExpires(opts *bind.CallOpts, id *big.Int) (*big.Int, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "nameExpires", id)
	if err != nil {
		return *new(*big.Int), err
	}
	out0 := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return out0, nil
}

// RegistrarOracle answers Oracle calls from a BaseRegistrar over JSON-RPC.
type RegistrarOracle struct {
	caller       *BaseRegistrarCaller
	client       *ethclient.Client
	queryTimeout time.Duration
}

// DialRegistrar connects to rpcURL and binds the registrar at address.
func DialRegistrar(ctx context.Context, rpcURL string, address string, queryTimeout time.Duration) (*RegistrarOracle, error) {
	if !common.IsHexAddress(address) {
		return nil, errors.Errorf("invalid registrar address %q", address)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial ethereum rpc")
	}
	caller, err := NewBaseRegistrarCaller(common.HexToAddress(address), client)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to bind registrar")
	}
	return &RegistrarOracle{caller: caller, client: client, queryTimeout: queryTimeout}, nil
}

func (o *RegistrarOracle) OwnerOf(ctx context.Context, id *big.Int) (common.Address, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()
	return o.caller.OwnerOf(&bind.CallOpts{Context: ctx, Pending: false}, id)
}

func (o *RegistrarOracle) NameExpires(ctx context.Context, id *big.Int) (*big.Int, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()
	return o.caller.NameExpires(&bind.CallOpts{Context: ctx, Pending: false}, id)
}

func (o *RegistrarOracle) Close() {
	o.client.Close()
}

func (o *RegistrarOracle) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.queryTimeout > 0 {
		return context.WithTimeout(ctx, o.queryTimeout)
	}
	return ctx, func() {}
}
