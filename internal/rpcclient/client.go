// Package rpcclient is a minimal JSON-RPC 2.0 client for the claims API.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Klingon-tech/klingnet-claims/internal/rpc"
	"github.com/Klingon-tech/klingnet-claims/pkg/crypto"
)

// Client talks to a claims RPC server. A nil key sends anonymous requests,
// which the server accepts only for query methods.
type Client struct {
	url  string
	key  *crypto.PrivateKey
	http *http.Client
}

// New creates a client for the given server URL.
func New(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// SetKey attaches a signing key; subsequent calls are authenticated.
func (c *Client) SetKey(key *crypto.PrivateKey) {
	c.key = key
}

// Call invokes a JSON-RPC method and unmarshals the result into out.
// Pass nil out to discard the result.
func (c *Client) Call(method string, params, out interface{}) error {
	body, err := json.Marshal(rpc.Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.key != nil {
		pubKey, sig, err := rpc.SignBody(c.key, body)
		if err != nil {
			return fmt.Errorf("sign request: %w", err)
		}
		httpReq.Header.Set(rpc.HeaderPubKey, pubKey)
		httpReq.Header.Set(rpc.HeaderSignature, sig)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("rpc call %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var resp rpc.Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if out == nil {
		return nil
	}

	result, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("remarshal result: %w", err)
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}
