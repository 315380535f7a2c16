package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Klingon-tech/klingnet-claims/internal/claims"
	"github.com/Klingon-tech/klingnet-claims/internal/fees"
	"github.com/Klingon-tech/klingnet-claims/internal/ledger"
	"github.com/Klingon-tech/klingnet-claims/internal/locator"
	"github.com/Klingon-tech/klingnet-claims/internal/storage"
	"github.com/Klingon-tech/klingnet-claims/pkg/crypto"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// envelope mirrors Response with a raw result for per-test decoding.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
	ID      interface{}     `json:"id"`
}

type testServer struct {
	srv   *Server
	led   *ledger.Ledger
	admin *crypto.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := storage.NewMemory()
	led := ledger.New(storage.NewPrefixDB(db, []byte("ledger/")))
	store := claims.NewStore(storage.NewPrefixDB(db, []byte("claims/")))

	engine := claims.NewEngine(store, led, led, led, claims.Params{
		Fees:         fees.Schedule{MintFee: 100, MintFeeMerkle: 250},
		FeeRecipient: types.Address{0xfe},
		Gateway:      "https://gw.example/",
		Sink:         types.Address{0xdd},
		Now:          func() int64 { return 1 },
	})

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	adminAddr := crypto.AddressFromPubKey(key.PublicKey())
	if err := led.AddAdministrator(testCollection(), adminAddr); err != nil {
		t.Fatalf("AddAdministrator: %v", err)
	}

	srv := New("127.0.0.1:0", engine)
	srv.SetLedger(led)
	return &testServer{srv: srv, led: led, admin: key}
}

func testCollection() types.Address {
	return types.Address{1}
}

func marshalRequest(t *testing.T, method string, params interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(Request{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return body
}

// post sends a request body through the handler, optionally signed by key.
func (ts *testServer) post(t *testing.T, body []byte, key *crypto.PrivateKey) *envelope {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if key != nil {
		pubHex, sigHex, err := SignBody(key, body)
		if err != nil {
			t.Fatalf("SignBody: %v", err)
		}
		req.Header.Set(HeaderPubKey, pubHex)
		req.Header.Set(HeaderSignature, sigHex)
	}
	rec := httptest.NewRecorder()
	ts.srv.handleRequest(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return &env
}

func wantCode(t *testing.T, env *envelope, code int) {
	t.Helper()
	if env.Error == nil {
		t.Fatalf("expected error code %d, got success %s", code, env.Result)
	}
	if env.Error.Code != code {
		t.Fatalf("error code = %d (%s), want %d", env.Error.Code, env.Error.Message, code)
	}
}

func TestRejectNonPost(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	ts.srv.handleRequest(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error == nil || env.Error.Code != CodeInvalidRequest {
		t.Errorf("expected CodeInvalidRequest, got %+v", env.Error)
	}
}

func TestRejectInvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	env := ts.post(t, []byte("{not json"), nil)
	wantCode(t, env, CodeParseError)
}

func TestRejectWrongVersion(t *testing.T) {
	ts := newTestServer(t)
	body, _ := json.Marshal(map[string]interface{}{"jsonrpc": "1.0", "method": "claim_get", "id": 1})
	env := ts.post(t, body, nil)
	wantCode(t, env, CodeInvalidRequest)
}

func TestMethodNotFound(t *testing.T) {
	ts := newTestServer(t)
	env := ts.post(t, marshalRequest(t, "claim_bogus", nil), nil)
	wantCode(t, env, CodeMethodNotFound)
}

func TestAnonymousMutationRejected(t *testing.T) {
	ts := newTestServer(t)
	body := marshalRequest(t, "claim_initialize", ClaimConfigParam{
		Collection: testCollection().String(),
		ClaimID:    1,
		Config:     claims.Config{Location: "ipfs://x", TotalMax: 1, Kind: locator.KindVerbatim},
	})
	env := ts.post(t, body, nil)
	wantCode(t, env, CodeUnauthorized)
}

func TestMalformedAuthHeader(t *testing.T) {
	ts := newTestServer(t)
	body := marshalRequest(t, "claim_get", ClaimParam{Collection: testCollection().String(), ClaimID: 1})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set(HeaderPubKey, "zz")
	req.Header.Set(HeaderSignature, "zz")
	rec := httptest.NewRecorder()
	ts.srv.handleRequest(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error == nil || env.Error.Code != CodeUnauthorized {
		t.Errorf("expected CodeUnauthorized, got %+v", env.Error)
	}
}

func TestTamperedBodyRejected(t *testing.T) {
	ts := newTestServer(t)
	body := marshalRequest(t, "claim_get", ClaimParam{Collection: testCollection().String(), ClaimID: 1})
	pubHex, sigHex, err := SignBody(ts.admin, body)
	if err != nil {
		t.Fatalf("SignBody: %v", err)
	}

	tampered := bytes.Replace(body, []byte("claim_get"), []byte("claim_got"), 1)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(tampered))
	req.Header.Set(HeaderPubKey, pubHex)
	req.Header.Set(HeaderSignature, sigHex)
	rec := httptest.NewRecorder()
	ts.srv.handleRequest(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error == nil || env.Error.Code != CodeUnauthorized {
		t.Errorf("expected CodeUnauthorized for tampered body, got %+v", env.Error)
	}
}

func TestClaimLifecycleOverRPC(t *testing.T) {
	ts := newTestServer(t)
	coll := testCollection().String()

	// Authenticated initialize.
	env := ts.post(t, marshalRequest(t, "claim_initialize", ClaimConfigParam{
		Collection: coll,
		ClaimID:    7,
		Config:     claims.Config{Location: "ipfs://bundle", TotalMax: 5, Kind: locator.KindVerbatim, Price: 0},
	}), ts.admin)
	if env.Error != nil {
		t.Fatalf("claim_initialize: %+v", env.Error)
	}

	// Anonymous query sees it.
	env = ts.post(t, marshalRequest(t, "claim_get", ClaimParam{Collection: coll, ClaimID: 7}), nil)
	if env.Error != nil {
		t.Fatalf("claim_get: %+v", env.Error)
	}
	var got ClaimResult
	if err := json.Unmarshal(env.Result, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.ClaimID != 7 || got.Claim.TotalMax != 5 {
		t.Errorf("claim_get = %+v", got)
	}

	// Unknown claim maps to not-found.
	env = ts.post(t, marshalRequest(t, "claim_get", ClaimParam{Collection: coll, ClaimID: 99}), nil)
	wantCode(t, env, CodeNotFound)
}

func TestMintOverRPC(t *testing.T) {
	ts := newTestServer(t)
	coll := testCollection().String()

	env := ts.post(t, marshalRequest(t, "claim_initialize", ClaimConfigParam{
		Collection: coll,
		ClaimID:    1,
		Config:     claims.Config{Location: "ipfs://bundle", TotalMax: 5, Kind: locator.KindVerbatim},
	}), ts.admin)
	if env.Error != nil {
		t.Fatalf("claim_initialize: %+v", env.Error)
	}

	minter, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	minterAddr := crypto.AddressFromPubKey(minter.PublicKey())
	if err := ts.led.Credit(minterAddr, 1_000); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	env = ts.post(t, marshalRequest(t, "claim_mint", MintParam{
		Collection: coll, ClaimID: 1, Count: 1, Payment: 1_000,
	}), minter)
	if env.Error != nil {
		t.Fatalf("claim_mint: %+v", env.Error)
	}
	var res claims.MintResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.First != 1 || res.Count != 1 || res.Charged != 100 {
		t.Errorf("mint result = %+v", res)
	}

	// The issued unit is queryable through the ledger endpoints.
	env = ts.post(t, marshalRequest(t, "ledger_ownerOf", TokenParam{Collection: coll, TokenID: res.First}), nil)
	if env.Error != nil {
		t.Fatalf("ledger_ownerOf: %+v", env.Error)
	}
	var owner OwnerResult
	if err := json.Unmarshal(env.Result, &owner); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if owner.Owner != minterAddr.String() {
		t.Errorf("owner = %s, want %s", owner.Owner, minterAddr)
	}

	env = ts.post(t, marshalRequest(t, "ledger_getBalance", AddressParam{Address: minterAddr.String()}), nil)
	if env.Error != nil {
		t.Fatalf("ledger_getBalance: %+v", env.Error)
	}
	var bal BalanceResult
	if err := json.Unmarshal(env.Result, &bal); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if bal.Balance != 900 {
		t.Errorf("balance = %d, want 900", bal.Balance)
	}
}

func TestInvalidAddressParam(t *testing.T) {
	ts := newTestServer(t)
	env := ts.post(t, marshalRequest(t, "claim_get", ClaimParam{Collection: "nothex", ClaimID: 1}), nil)
	wantCode(t, env, CodeInvalidParams)
}
