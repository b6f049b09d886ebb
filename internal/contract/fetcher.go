package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// ABISource returns the verified ABI JSON of a contract. *providers.Explorer
// satisfies it.
type ABISource interface {
	Name() string
	ContractABI(ctx context.Context, address common.Address) (string, error)
}

// Fetcher retrieves verified ABIs, trying each source in order.
type Fetcher struct {
	sources []ABISource
}

// NewFetcher creates a Fetcher over sources.
func NewFetcher(sources ...ABISource) *Fetcher {
	return &Fetcher{sources: sources}
}

// Fetch returns the ABI of the first source that has one. The errors of
// every failed source are combined.
func (f *Fetcher) Fetch(ctx context.Context, address common.Address) (abi.ABI, error) {
	if len(f.sources) == 0 {
		return abi.ABI{}, errors.New("no explorer API available for ABI lookup")
	}
	var errs error
	for _, src := range f.sources {
		raw, err := src.ContractABI(ctx, address)
		if err == nil {
			return ParseABI([]byte(raw))
		}
		if ctx.Err() != nil {
			return abi.ABI{}, ctx.Err()
		}
		logrus.WithError(err).WithField("source", src.Name()).Debug("ABI lookup failed")
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	return abi.ABI{}, errs
}

// LoadFromFile loads an ABI from a local file holding either a raw ABI
// array or a Hardhat/Foundry artifact with an "abi" key.
func LoadFromFile(path string) (abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("reading ABI file %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return abi.ABI{}, fmt.Errorf("ABI file is empty: %s", path)
	}

	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if json.Unmarshal(data, &artifact) == nil && len(artifact.ABI) > 1 && artifact.ABI[0] == '[' {
		data = artifact.ABI
	}
	return ParseABI(data)
}

// ParseABI parses a raw ABI JSON array.
func ParseABI(data []byte) (abi.ABI, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		return abi.ABI{}, errors.New("ABI is a JSON object, not an array; artifacts must carry an \"abi\" key")
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("invalid ABI JSON: %w", err)
	}
	return parsed, nil
}

// Function is one entry of a Summary.
type Function struct {
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
	ReadOnly  bool   `json:"readOnly"`
	Payable   bool   `json:"payable,omitempty"`
}

// Event is one event of a Summary.
type Event struct {
	Signature string `json:"signature"`
	Topic     string `json:"topic"`
}

// Summary lists the interface of a contract.
type Summary struct {
	Functions []Function `json:"functions"`
	Events    []Event    `json:"events"`
}

// Summarize lists the functions and events of parsed, sorted by signature.
func Summarize(parsed abi.ABI) Summary {
	s := Summary{Functions: []Function{}, Events: []Event{}}
	for _, m := range parsed.Methods {
		s.Functions = append(s.Functions, Function{
			Signature: m.Sig,
			Selector:  hexutil.Encode(m.ID),
			ReadOnly:  m.IsConstant(),
			Payable:   m.IsPayable(),
		})
	}
	for _, e := range parsed.Events {
		s.Events = append(s.Events, Event{Signature: e.Sig, Topic: e.ID.Hex()})
	}
	sort.Slice(s.Functions, func(i, j int) bool {
		return strings.ToLower(s.Functions[i].Signature) < strings.ToLower(s.Functions[j].Signature)
	})
	sort.Slice(s.Events, func(i, j int) bool { return s.Events[i].Signature < s.Events[j].Signature })
	return s
}
