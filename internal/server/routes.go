package server

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
)

// addressTxLimit is how many recent transactions the address route returns.
const addressTxLimit = 20

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/networks", s.handleNetworks)
	mux.HandleFunc("GET /api/address/{address}", s.handle(s.address))
	mux.HandleFunc("GET /api/portfolio", s.handle(s.portfolio))
	mux.HandleFunc("GET /api/block/{block}", s.handle(s.block))
	mux.HandleFunc("GET /api/transaction/{hash}", s.handle(s.transaction))
	mux.HandleFunc("GET /api/contract/{address}", s.handle(s.contract))
	mux.HandleFunc("GET /api/tokens/top", s.handle(s.topTokens))
	mux.HandleFunc("GET /api/tokens/info", s.handle(s.tokenInfo))
	mux.HandleFunc("GET /api/tokens/transfers", s.handle(s.tokenTransfers))
	mux.HandleFunc("GET /api/nft/collection", s.handle(s.nftCollection))
	mux.HandleFunc("GET /api/nft/item", s.handle(s.nftItem))
	mux.HandleFunc("GET /api/nft/owned", s.handle(s.nftOwned))
	mux.HandleFunc("GET /api/dashboard/stats", s.handle(s.stats))
	mux.HandleFunc("GET /api/dashboard/compare", s.handleCompare)
	mux.HandleFunc("GET /api/dashboard/gas-history", s.handle(s.gasHistory))
	mux.HandleFunc("GET /api/dashboard/tx-history", s.handle(s.txHistory))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Error: "no route for " + r.Method + " " + r.URL.Path})
	})
	return mux
}

// apiFunc serves one route for a network.
type apiFunc func(ctx context.Context, network string, r *http.Request) (interface{}, error)

func (s *Server) handle(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()

		data, err := fn(ctx, networkOf(r), r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, data)
	}
}

func networkOf(r *http.Request) string {
	if n := strings.TrimSpace(r.URL.Query().Get("network")); n != "" {
		return strings.ToLower(n)
	}
	return DefaultNetwork
}

// required returns a non-empty query parameter.
func required(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s parameter is required", errBadRequest, name)
	}
	return v, nil
}

// intParam parses an optional positive integer parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return n, nil
}

func (s *Server) resolve(ctx context.Context, network, input string) (common.Address, error) {
	return s.svc.Lookup.ResolveAddress(ctx, network, input)
}

type networkInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	ChainID     int64  `json:"chainId"`
	Currency    string `json:"currency"`
	Explorer    string `json:"explorer"`
}

func (s *Server) handleNetworks(w http.ResponseWriter, _ *http.Request) {
	mode := s.svc.Networks.Mode()
	chains := s.svc.Networks.Registry().All()
	out := make([]networkInfo, 0, len(chains))
	for _, c := range chains {
		info := networkInfo{
			Name:        c.Name,
			DisplayName: c.DisplayName,
			ChainID:     c.ChainID,
			Currency:    c.NativeCurrency.Symbol,
			Explorer:    c.Explorer(mode),
		}
		if mode == chain.ModeTestnet {
			info.ChainID = c.TestnetChainID
		}
		out = append(out, info)
	}
	writeData(w, map[string]interface{}{"mode": mode, "networks": out})
}

func (s *Server) address(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	addr, err := s.resolve(ctx, network, r.PathValue("address"))
	if err != nil {
		return nil, err
	}
	limit, err := intParam(r, "limit", addressTxLimit)
	if err != nil {
		return nil, err
	}
	return s.svc.Lookup.AddressWithTransactions(ctx, network, addr, limit)
}

// portfolio reads ?addresses=a,b,c (hex or ENS).
func (s *Server) portfolio(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	var addrs []common.Address
	for _, raw := range strings.Split(r.URL.Query().Get("addresses"), ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		addr, err := s.resolve(ctx, network, raw)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return s.svc.Lookup.Portfolio(ctx, network, addrs)
}

// handleCompare reads stats of every configured network; it never fails as
// a whole.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	chains := s.svc.Networks.Registry().All()
	names := make([]string, len(chains))
	for i, c := range chains {
		names[i] = c.Name
	}
	writeData(w, s.svc.Analytics.Compare(ctx, names))
}

func (s *Server) block(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	return s.svc.Lookup.Block(ctx, network, r.PathValue("block"))
}

func (s *Server) transaction(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	hash, err := lookup.ParseHash(r.PathValue("hash"))
	if err != nil {
		return nil, err
	}
	return s.svc.Lookup.Transaction(ctx, network, hash)
}

func (s *Server) contract(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	addr, err := s.resolve(ctx, network, r.PathValue("address"))
	if err != nil {
		return nil, err
	}
	return s.svc.Lookup.Contract(ctx, network, addr)
}

func (s *Server) topTokens(ctx context.Context, network string, _ *http.Request) (interface{}, error) {
	return s.svc.Tokens.Top(ctx, network)
}

func (s *Server) tokenInfo(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	raw, err := required(r, "address")
	if err != nil {
		return nil, err
	}
	addr, err := lookup.ParseAddress(raw)
	if err != nil {
		return nil, err
	}
	return s.svc.Tokens.Info(ctx, network, addr)
}

func (s *Server) tokenTransfers(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	raw, err := required(r, "address")
	if err != nil {
		return nil, err
	}
	addr, err := lookup.ParseAddress(raw)
	if err != nil {
		return nil, err
	}
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		return nil, err
	}
	return s.svc.Tokens.Transfers(ctx, network, addr, limit)
}

func (s *Server) nftCollection(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	raw, err := required(r, "address")
	if err != nil {
		return nil, err
	}
	addr, err := lookup.ParseAddress(raw)
	if err != nil {
		return nil, err
	}
	return s.svc.NFTs.Collection(ctx, network, addr)
}

func (s *Server) nftItem(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	raw, err := required(r, "contract")
	if err != nil {
		return nil, err
	}
	addr, err := lookup.ParseAddress(raw)
	if err != nil {
		return nil, err
	}
	rawID, err := required(r, "tokenId")
	if err != nil {
		return nil, err
	}
	id, ok := new(big.Int).SetString(rawID, 0)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("%w: tokenId %q", errBadRequest, rawID)
	}
	return s.svc.NFTs.Item(ctx, network, addr, id)
}

func (s *Server) nftOwned(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	rawOwner, err := required(r, "owner")
	if err != nil {
		return nil, err
	}
	rawContract, err := required(r, "contract")
	if err != nil {
		return nil, err
	}
	owner, err := s.resolve(ctx, network, rawOwner)
	if err != nil {
		return nil, err
	}
	collection, err := lookup.ParseAddress(rawContract)
	if err != nil {
		return nil, err
	}
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		return nil, err
	}
	return s.svc.NFTs.OwnedBy(ctx, network, owner, collection, limit)
}

func (s *Server) stats(ctx context.Context, network string, _ *http.Request) (interface{}, error) {
	return s.svc.Analytics.Stats(ctx, network)
}

func (s *Server) gasHistory(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	hours, err := intParam(r, "hours", 24)
	if err != nil {
		return nil, err
	}
	return s.svc.Analytics.GasHistory(ctx, network, hours)
}

func (s *Server) txHistory(ctx context.Context, network string, r *http.Request) (interface{}, error) {
	days, err := intParam(r, "days", 7)
	if err != nil {
		return nil, err
	}
	return s.svc.Analytics.VolumeHistory(ctx, network, days)
}
