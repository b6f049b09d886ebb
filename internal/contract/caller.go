package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownMethod is returned for a method the ABI does not declare.
	ErrUnknownMethod = errors.New("method not found in ABI")
	// ErrNotReadOnly is returned when asked to call a state-changing method.
	ErrNotReadOnly = errors.New("method is not read-only")
	// ErrEmptyResult is returned when a call that declares outputs returns
	// no data, which is what a node answers for an address without code.
	ErrEmptyResult = errors.New("call returned no data")
)

// Backend executes read-only calls. *chain.EVMClient satisfies it.
type Backend interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Caller calls view and pure functions through a parsed ABI.
type Caller struct {
	backend Backend
	abi     abi.ABI
}

// NewCaller creates a Caller for parsed.
func NewCaller(backend Backend, parsed abi.ABI) *Caller {
	return &Caller{backend: backend, abi: parsed}
}

// NewBuiltinCaller creates a Caller for a registered built-in ABI.
func NewBuiltinCaller(backend Backend, id string) (*Caller, error) {
	b, ok := GetBuiltin(id)
	if !ok {
		return nil, fmt.Errorf("unknown builtin ABI %q", id)
	}
	return NewCaller(backend, b.ABI), nil
}

// Call packs args, calls method on the contract at to and returns the
// unpacked outputs.
func (c *Caller) Call(ctx context.Context, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if !m.IsConstant() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotReadOnly, method, m.StateMutability)
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}

	out, err := c.backend.CallContract(ctx, to, data)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 && len(m.Outputs) > 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrEmptyResult, method, to.Hex())
	}

	vals, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return vals, nil
}

// String calls a method returning a single string.
func (c *Caller) String(ctx context.Context, to common.Address, method string, args ...interface{}) (string, error) {
	v, err := c.single(ctx, to, method, args...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeErr(method, "string", v)
	}
	return s, nil
}

// Uint calls a method returning a single unsigned integer of any width.
func (c *Caller) Uint(ctx context.Context, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	v, err := c.single(ctx, to, method, args...)
	if err != nil {
		return nil, err
	}
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	default:
		return nil, typeErr(method, "uint", v)
	}
}

// Address calls a method returning a single address.
func (c *Caller) Address(ctx context.Context, to common.Address, method string, args ...interface{}) (common.Address, error) {
	v, err := c.single(ctx, to, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	a, ok := v.(common.Address)
	if !ok {
		return common.Address{}, typeErr(method, "address", v)
	}
	return a, nil
}

// Bool calls a method returning a single bool.
func (c *Caller) Bool(ctx context.Context, to common.Address, method string, args ...interface{}) (bool, error) {
	v, err := c.single(ctx, to, method, args...)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeErr(method, "bool", v)
	}
	return b, nil
}

func (c *Caller) single(ctx context.Context, to common.Address, method string, args ...interface{}) (interface{}, error) {
	vals, err := c.Call(ctx, to, method, args...)
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("%s: expected 1 output, got %d", method, len(vals))
	}
	return vals[0], nil
}

func typeErr(method, want string, got interface{}) error {
	return fmt.Errorf("%s: expected %s output, got %T", method, want, got)
}
