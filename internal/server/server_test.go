package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Mohsinsiddi/w3scan/internal/analytics"
	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/contract"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/network"
	"github.com/Mohsinsiddi/w3scan/internal/nft"
	"github.com/Mohsinsiddi/w3scan/internal/scan"
	"github.com/Mohsinsiddi/w3scan/internal/testutil"
	"github.com/Mohsinsiddi/w3scan/internal/token"
)

var (
	alice = testutil.Addr(0xa11ce)
	bob   = testutil.Addr(0xb0b)
)

func newTestServer(t *testing.T, c *testutil.Chain, opts Options) http.Handler {
	t.Helper()
	handlers := c.Handlers()
	handlers["eth_gasPrice"] = testutil.Static("0x3b9aca00")
	handlers["eth_call"] = testutil.NewContracts().Call
	node := testutil.NewNode(t, handlers)

	reg := chain.NewRegistryFrom([]chain.Chain{{
		Name: "devnet", DisplayName: "Dev Net", ChainID: 1337,
		NativeCurrency:  chain.Currency{Symbol: "DEV", Decimals: 18},
		MainnetRPCs:     []string{node.URL},
		MainnetExplorer: "https://explorer.dev",
	}})
	acc := network.New(reg, network.Options{})
	t.Cleanup(acc.Close)

	svc := Services{
		Networks:  acc,
		Lookup:    lookup.New(acc, scan.NewScanner(acc, scan.Options{MaxBlocksBack: 20})),
		Tokens:    token.New(acc, nil),
		NFTs:      nft.New(acc),
		Analytics: analytics.New(acc, analytics.Options{RequestsPerSecond: rate.Inf}),
	}
	return New(svc, opts).Handler()
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func get(t *testing.T, h http.Handler, path string) (int, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, testutil.NewChain(1), Options{})
	code, resp := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}

func TestAddressRoute(t *testing.T) {
	c := testutil.NewChain(10)
	c.Add(10, testutil.Tx{Hash: testutil.Hash(1), From: alice, To: testutil.To(bob)})
	c.Add(8, testutil.Tx{Hash: testutil.Hash(2), From: bob, To: testutil.To(alice)})
	h := newTestServer(t, c, Options{})

	code, resp := get(t, h, "/api/address/"+alice.Hex()+"?network=devnet")
	require.Equal(t, http.StatusOK, code, resp.Error)
	var data lookup.AddressDetails
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, alice.Hex(), data.Address)
	require.Len(t, data.Transactions, 2)
	assert.Equal(t, testutil.Hash(1).Hex(), data.Transactions[0].Hash)

	code, resp = get(t, h, "/api/address/"+alice.Hex()+"?network=devnet&limit=1")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Len(t, data.Transactions, 1)
}

func TestErrorStatuses(t *testing.T) {
	c := testutil.NewChain(5)
	c.Add(5)
	h := newTestServer(t, c, Options{})

	tests := []struct {
		path string
		want int
	}{
		{"/api/block/latest?network=devnet", http.StatusOK},
		{"/api/block/4?network=devnet", http.StatusNotFound},
		{"/api/block/abc?network=devnet", http.StatusBadRequest},
		{"/api/transaction/0x1234?network=devnet", http.StatusBadRequest},
		{"/api/transaction/" + testutil.Hash(9).Hex() + "?network=devnet", http.StatusNotFound},
		{"/api/address/not-an-address?network=devnet", http.StatusBadRequest},
		{"/api/address/" + alice.Hex(), http.StatusServiceUnavailable}, // default ethereum is not configured
		{"/api/block/1?network=solana", http.StatusServiceUnavailable},
		{"/api/tokens/info?network=devnet", http.StatusBadRequest},
		{"/api/tokens/info?network=devnet&address=" + bob.Hex(), http.StatusNotFound},
		{"/api/nft/owned?network=devnet&owner=" + alice.Hex(), http.StatusBadRequest},
		{"/api/nft/item?network=devnet&contract=" + bob.Hex() + "&tokenId=x", http.StatusBadRequest},
		{"/api/dashboard/gas-history?network=devnet&hours=-1", http.StatusBadRequest},
		{"/api/dashboard/gas-history?network=devnet&hours=4611686018427387904", http.StatusBadRequest},
		{"/api/dashboard/tx-history?network=devnet&days=100000", http.StatusBadRequest},
		{"/api/address/" + alice.Hex() + "?network=devnet&limit=9223372036854775807", http.StatusOK},
		{"/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, resp := get(t, h, tt.path)
			assert.Equal(t, tt.want, code, resp.Error)
			assert.Equal(t, tt.want == http.StatusOK, resp.Success)
			if tt.want != http.StatusOK {
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestDashboardRoutes(t *testing.T) {
	c := testutil.NewChain(600)
	c.Add(600, testutil.Tx{Hash: testutil.Hash(1), From: alice})
	c.Add(300)
	h := newTestServer(t, c, Options{})

	code, resp := get(t, h, "/api/dashboard/stats?network=devnet")
	require.Equal(t, http.StatusOK, code, resp.Error)
	var st analytics.Stats
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	assert.Equal(t, uint64(600), st.BlockNumber)

	code, resp = get(t, h, "/api/dashboard/tx-history?network=devnet&days=1")
	require.Equal(t, http.StatusOK, code, resp.Error)
	var points []analytics.VolumePoint
	require.NoError(t, json.Unmarshal(resp.Data, &points))
	require.Len(t, points, 2)
	assert.Equal(t, uint64(300), points[0].Block)
}

func TestPortfolioRoute(t *testing.T) {
	c := testutil.NewChain(3)
	c.Balances[alice] = big.NewInt(2)
	c.Balances[bob] = big.NewInt(3)
	c.Nonces[alice] = 4
	h := newTestServer(t, c, Options{})

	code, resp := get(t, h, "/api/portfolio?network=devnet&addresses="+alice.Hex()+",%20"+bob.Hex()+",")
	require.Equal(t, http.StatusOK, code, resp.Error)
	var p lookup.Portfolio
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Len(t, p.Wallets, 2)
	assert.Equal(t, "5", p.TotalBalance)
	assert.Equal(t, uint64(4), p.TotalTransactions)

	code, _ = get(t, h, "/api/portfolio?network=devnet")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, h, "/api/portfolio?network=devnet&addresses="+alice.Hex()+",nope")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCompareRoute(t *testing.T) {
	c := testutil.NewChain(50)
	c.Add(50)
	h := newTestServer(t, c, Options{})

	code, resp := get(t, h, "/api/dashboard/compare")
	require.Equal(t, http.StatusOK, code, resp.Error)
	var rows []analytics.NetworkStats
	require.NoError(t, json.Unmarshal(resp.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "devnet", rows[0].Network)
	assert.Empty(t, rows[0].Error)
	require.NotNil(t, rows[0].Stats)
	assert.Equal(t, uint64(50), rows[0].Stats.BlockNumber)
}

func TestNetworksRoute(t *testing.T) {
	h := newTestServer(t, testutil.NewChain(1), Options{})
	code, resp := get(t, h, "/api/networks")
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Mode     string        `json:"mode"`
		Networks []networkInfo `json:"networks"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "mainnet", data.Mode)
	require.Len(t, data.Networks, 1)
	assert.Equal(t, networkInfo{Name: "devnet", DisplayName: "Dev Net", ChainID: 1337, Currency: "DEV", Explorer: "https://explorer.dev"}, data.Networks[0])
}

func TestRateLimitPerIP(t *testing.T) {
	h := newTestServer(t, testutil.NewChain(1), Options{RateLimit: 0.001, RateBurst: 2})

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, testutil.NewChain(1), Options{CORSOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, testutil.NewChain(1), Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err, "a fresh uuid is assigned")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "trace-42", rec.Header().Get(RequestIDHeader), "client ids are echoed")
}

func TestOptionsDefaults(t *testing.T) {
	srv := New(Services{}, Options{ShutdownTimeout: time.Second})
	assert.Equal(t, ":8080", srv.opts.Addr)
	assert.Equal(t, 60*time.Second, srv.opts.RequestTimeout)
	assert.Equal(t, time.Second, srv.opts.ShutdownTimeout, "explicit values are kept")
	assert.Zero(t, srv.opts.RateLimit)
	assert.Nil(t, srv.limiter)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("x: %w", scan.ErrInvalidLimit)))
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("x: %w", analytics.ErrRangeTooLarge)))
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("x: %w", contract.ErrEmptyResult)))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(fmt.Errorf("x: %w", network.ErrUnavailableNetwork)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(&chain.FetchError{Method: "eth_call", Err: errors.New("boom")}))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	reg := chain.NewRegistryFrom(nil)
	acc := network.New(reg, network.Options{})
	srv := New(Services{Networks: acc}, Options{RateLimit: 5, ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
