package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

const etherscanBaseURL = "https://api.etherscan.io/v2/api"

// etherscanChains lists chain IDs served by the Etherscan V2 unified API.
var etherscanChains = map[int64]bool{
	1: true, 11155111: true, // ethereum, sepolia
	8453: true, 84532: true, // base
	137: true, 80002: true, // polygon
	42161: true, 421614: true, // arbitrum
	10: true, 11155420: true, // optimism
	324: true, 534352: true, 56: true, 43114: true,
	100: true, 59144: true, 5000: true, 42220: true, 250: true,
}

// ErrNotVerified is returned by ContractABI for contracts whose source was
// never published to the explorer.
var ErrNotVerified = errors.New("contract source not verified")

// explorerResponse is the raw Etherscan/BlockScout-compatible API envelope.
// Result is kept raw because a failed call returns a plain string (e.g.
// "NOTOK" or an error message) while a successful call returns an array.
type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type explorerTx struct {
	Hash            string `json:"hash"`
	BlockNumber     string `json:"blockNumber"`
	BlockHash       string `json:"blockHash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Gas             string `json:"gas"`
	GasPrice        string `json:"gasPrice"`
	Nonce           string `json:"nonce"`
	Input           string `json:"input"`
	TimeStamp       string `json:"timeStamp"`
	ContractAddress string `json:"contractAddress"`
}

// Explorer fetches history from an Etherscan-compatible `txlist` endpoint.
type Explorer struct {
	name   string
	client *resty.Client
	params map[string]string
}

func newExplorer(name, apiURL, apiKey string, params map[string]string) *Explorer {
	client := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(12 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second)
	if apiKey != "" {
		client.SetQueryParam("apikey", apiKey)
	}
	for k, v := range params {
		client.SetQueryParam(k, v)
	}
	return &Explorer{name: name, client: client}
}

// NewEtherscan creates a provider on the Etherscan V2 API for chainID.
// Returns nil if apiKey is empty or the chain is not supported.
func NewEtherscan(chainID int64, apiKey string) *Explorer {
	if apiKey == "" || !etherscanChains[chainID] {
		return nil
	}
	return newExplorer("etherscan", etherscanBaseURL, apiKey, map[string]string{
		"chainid": strconv.FormatInt(chainID, 10),
	})
}

// NewBlockScout creates a provider on a chain's own explorer API. apiKey may
// be empty for the free tier.
func NewBlockScout(apiURL, apiKey string) *Explorer {
	return newExplorer("blockscout", apiURL, apiKey, nil)
}

// SetBaseURL points the provider at another endpoint.
func (e *Explorer) SetBaseURL(url string) *Explorer {
	e.client.SetBaseURL(url)
	return e
}

func (e *Explorer) Name() string { return e.name }

// Transactions fetches the latest n transactions of address.
func (e *Explorer) Transactions(ctx context.Context, address common.Address, n int) ([]*chain.Transaction, error) {
	var envelope explorerResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"module":     "account",
			"action":     "txlist",
			"address":    address.Hex(),
			"startblock": "0",
			"endblock":   "99999999",
			"page":       "1",
			"offset":     strconv.Itoa(n),
			"sort":       "desc",
		}).
		SetResult(&envelope).
		ForceContentType("application/json").
		Get("")
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("explorer request failed: HTTP %d", resp.StatusCode())
	}
	return parseTxList(envelope)
}

// ContractABI fetches the verified ABI JSON of the contract at address.
func (e *Explorer) ContractABI(ctx context.Context, address common.Address) (string, error) {
	var envelope explorerResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"module":  "contract",
			"action":  "getabi",
			"address": address.Hex(),
		}).
		SetResult(&envelope).
		ForceContentType("application/json").
		Get("")
	if err != nil {
		return "", fmt.Errorf("explorer request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("explorer request failed: HTTP %d", resp.StatusCode())
	}

	var result string
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		return "", fmt.Errorf("parsing explorer ABI response: %w", err)
	}
	if envelope.Status != "1" {
		if strings.Contains(strings.ToLower(result), "not verified") {
			return "", fmt.Errorf("%w: %s", ErrNotVerified, address.Hex())
		}
		if result == "" {
			result = envelope.Message
		}
		return "", fmt.Errorf("explorer API: %s", result)
	}
	return result, nil
}

func parseTxList(envelope explorerResponse) ([]*chain.Transaction, error) {
	if envelope.Status != "1" {
		// "No transactions found" is an empty history, not a failure.
		if strings.HasPrefix(strings.ToLower(envelope.Message), "no transactions") {
			return []*chain.Transaction{}, nil
		}
		var msg string
		if err := json.Unmarshal(envelope.Result, &msg); err == nil && msg != "" {
			return nil, fmt.Errorf("explorer API: %s", msg)
		}
		return nil, fmt.Errorf("explorer API: %s", envelope.Message)
	}

	var raw []explorerTx
	if err := json.Unmarshal(envelope.Result, &raw); err != nil {
		return nil, fmt.Errorf("parsing explorer tx list: %w", err)
	}

	txs := make([]*chain.Transaction, 0, len(raw))
	for _, et := range raw {
		tx := &chain.Transaction{
			Hash:        common.HexToHash(et.Hash),
			From:        common.HexToAddress(et.From),
			Value:       decimal(et.Value),
			GasPrice:    decimal(et.GasPrice),
			Gas:         decimal(et.Gas).Uint64(),
			Nonce:       decimal(et.Nonce).Uint64(),
			BlockNumber: decimal(et.BlockNumber).Uint64(),
			Timestamp:   decimal(et.TimeStamp).Uint64(),
		}
		if et.To != "" {
			to := common.HexToAddress(et.To)
			tx.To = &to
		}
		if et.BlockHash != "" {
			tx.BlockHash = common.HexToHash(et.BlockHash)
		}
		if input, err := hexutil.Decode(et.Input); err == nil {
			tx.Input = input
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// decimal parses an explorer decimal string; malformed values read as 0.
func decimal(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
