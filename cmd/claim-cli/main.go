// claim-cli is a command-line client for interacting with a claimd service.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Klingon-tech/klingnet-claims/internal/claims"
	"github.com/Klingon-tech/klingnet-claims/internal/rpc"
	"github.com/Klingon-tech/klingnet-claims/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-claims/pkg/crypto"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8645"
	keyFile := ""

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--key" && len(args) > 1:
			keyFile = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--key="):
			keyFile = args[0][len("--key="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	if keyFile != "" {
		key, err := loadKey(keyFile)
		if err != nil {
			fatal("load key: %v", err)
		}
		client.SetKey(key)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "keygen":
		cmdKeygen(cmdArgs)
	case "init":
		cmdInit(client, cmdArgs)
	case "update":
		cmdUpdate(client, cmdArgs)
	case "get":
		cmdGet(client, cmdArgs)
	case "get-for-token":
		cmdGetForToken(client, cmdArgs)
	case "user-mints":
		cmdUserMints(client, cmdArgs)
	case "check-indices":
		cmdCheckIndices(client, cmdArgs)
	case "mint":
		cmdMint(client, cmdArgs)
	case "airdrop":
		cmdAirdrop(client, cmdArgs)
	case "locator":
		cmdLocator(client, cmdArgs)
	case "extend":
		cmdExtend(client, cmdArgs)
	case "set-burn":
		cmdSetBurn(client, cmdArgs)
	case "redeem":
		cmdRedeem(client, cmdArgs)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "owner":
		cmdOwner(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

// loadKey reads a 32-byte hex private key from a file.
func loadKey(path string) (*crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("key file must contain 32-byte hex: %w", err)
	}
	return crypto.PrivateKeyFromBytes(raw)
}

func cmdKeygen(args []string) {
	if len(args) != 1 {
		fatal("usage: claim-cli keygen <out-file>")
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		fatal("generate key: %v", err)
	}
	defer key.Zero()

	if err := os.WriteFile(args[0], []byte(hex.EncodeToString(key.Serialize())+"\n"), 0600); err != nil {
		fatal("write key file: %v", err)
	}
	fmt.Printf("address: %s\n", crypto.AddressFromPubKey(key.PublicKey()))
}

func cmdInit(client *rpcclient.Client, args []string) {
	if len(args) != 3 {
		fatal("usage: claim-cli init <collection> <claim-id> <config.json>")
	}
	var cfg claims.Config
	readJSONFile(args[2], &cfg)
	call(client, "claim_initialize", rpc.ClaimConfigParam{
		Collection: args[0],
		ClaimID:    parseClaimID(args[1]),
		Config:     cfg,
	})
}

func cmdUpdate(client *rpcclient.Client, args []string) {
	if len(args) != 3 {
		fatal("usage: claim-cli update <collection> <claim-id> <config.json>")
	}
	var cfg claims.Config
	readJSONFile(args[2], &cfg)
	call(client, "claim_update", rpc.ClaimConfigParam{
		Collection: args[0],
		ClaimID:    parseClaimID(args[1]),
		Config:     cfg,
	})
}

func cmdGet(client *rpcclient.Client, args []string) {
	if len(args) != 2 {
		fatal("usage: claim-cli get <collection> <claim-id>")
	}
	call(client, "claim_get", rpc.ClaimParam{
		Collection: args[0],
		ClaimID:    parseClaimID(args[1]),
	})
}

func cmdGetForToken(client *rpcclient.Client, args []string) {
	if len(args) != 2 {
		fatal("usage: claim-cli get-for-token <collection> <token-id>")
	}
	call(client, "claim_getForToken", rpc.TokenParam{
		Collection: args[0],
		TokenID:    parseTokenID(args[1]),
	})
}

func cmdUserMints(client *rpcclient.Client, args []string) {
	if len(args) != 3 {
		fatal("usage: claim-cli user-mints <collection> <claim-id> <address>")
	}
	call(client, "claim_getUserMints", rpc.UserMintsParam{
		Collection: args[0],
		ClaimID:    parseClaimID(args[1]),
		Address:    args[2],
	})
}

func cmdCheckIndices(client *rpcclient.Client, args []string) {
	if len(args) < 3 {
		fatal("usage: claim-cli check-indices <collection> <claim-id> <index>...")
	}
	indices := make([]uint32, len(args)-2)
	for i, a := range args[2:] {
		indices[i] = uint32(parseUint(a, 32))
	}
	call(client, "claim_checkIndices", rpc.CheckIndicesParam{
		Collection: args[0],
		ClaimID:    parseClaimID(args[1]),
		Indices:    indices,
	})
}

func cmdMint(client *rpcclient.Client, args []string) {
	if len(args) < 4 {
		fatal("usage: claim-cli mint <collection> <claim-id> <count> <payment> [proofs.json]")
	}
	param := rpc.MintParam{
		Collection: args[0],
		ClaimID:    parseClaimID(args[1]),
		Count:      uint32(parseUint(args[2], 32)),
		Payment:    parseUint(args[3], 64),
	}
	if len(args) > 4 {
		// Proof bundle for allow-list claims: {"leaf_indices":[...],"proofs":[[...]]}
		var bundle struct {
			LeafIndices []uint32       `json:"leaf_indices"`
			Proofs      [][]types.Hash `json:"proofs"`
		}
		readJSONFile(args[4], &bundle)
		param.LeafIndices = bundle.LeafIndices
		param.Proofs = bundle.Proofs
	}
	call(client, "claim_mint", param)
}

func cmdAirdrop(client *rpcclient.Client, args []string) {
	if len(args) < 3 || len(args[2:])%2 != 0 {
		fatal("usage: claim-cli airdrop <collection> <claim-id> (<recipient> <count>)...")
	}
	param := rpc.AirdropParam{
		Collection: args[0],
		ClaimID:    parseClaimID(args[1]),
	}
	pairs := args[2:]
	for i := 0; i < len(pairs); i += 2 {
		param.Recipients = append(param.Recipients, pairs[i])
		param.Counts = append(param.Counts, uint32(parseUint(pairs[i+1], 32)))
	}
	call(client, "claim_airdrop", param)
}

func cmdLocator(client *rpcclient.Client, args []string) {
	if len(args) != 2 {
		fatal("usage: claim-cli locator <collection> <token-id>")
	}
	call(client, "claim_tokenLocator", rpc.TokenParam{
		Collection: args[0],
		TokenID:    parseTokenID(args[1]),
	})
}

func cmdExtend(client *rpcclient.Client, args []string) {
	if len(args) != 4 {
		fatal("usage: claim-cli extend <claim|token> <collection> <id> <segment>")
	}
	switch args[0] {
	case "claim":
		call(client, "claim_extendLocation", rpc.ExtendParam{
			Collection: args[1],
			ClaimID:    parseClaimID(args[2]),
			Segment:    args[3],
		})
	case "token":
		call(client, "claim_extendTokenLocation", rpc.ExtendParam{
			Collection: args[1],
			TokenID:    parseTokenID(args[2]),
			Segment:    args[3],
		})
	default:
		fatal("usage: claim-cli extend <claim|token> <collection> <id> <segment>")
	}
}

func cmdSetBurn(client *rpcclient.Client, args []string) {
	if len(args) != 3 {
		fatal("usage: claim-cli set-burn <collection> <claim-id> <spec.json>")
	}
	var param rpc.BurnSpecParam
	readJSONFile(args[2], &param.Spec)
	param.Collection = args[0]
	param.ClaimID = parseClaimID(args[1])
	call(client, "burn_setRequirements", param)
}

func cmdRedeem(client *rpcclient.Client, args []string) {
	if len(args) != 5 {
		fatal("usage: claim-cli redeem <collection> <claim-id> <multiplier> <payment> <submissions.json>")
	}
	var param rpc.RedeemParam
	readJSONFile(args[4], &param.Submissions)
	param.Collection = args[0]
	param.ClaimID = parseClaimID(args[1])
	param.Multiplier = uint32(parseUint(args[2], 32))
	param.Payment = parseUint(args[3], 64)
	call(client, "burn_redeem", param)
}

func cmdBalance(client *rpcclient.Client, args []string) {
	switch len(args) {
	case 1:
		call(client, "ledger_getBalance", rpc.AddressParam{Address: args[0]})
	case 3:
		call(client, "ledger_getTokenBalance", rpc.BalanceParam{
			Collection: args[0],
			Address:    args[1],
			TokenID:    parseTokenID(args[2]),
		})
	default:
		fatal("usage: claim-cli balance <address> | balance <collection> <address> <token-id>")
	}
}

func cmdOwner(client *rpcclient.Client, args []string) {
	if len(args) != 2 {
		fatal("usage: claim-cli owner <collection> <token-id>")
	}
	call(client, "ledger_ownerOf", rpc.TokenParam{
		Collection: args[0],
		TokenID:    parseTokenID(args[1]),
	})
}

// call invokes the method and pretty-prints the raw result.
func call(client *rpcclient.Client, method string, params interface{}) {
	var result json.RawMessage
	if err := client.Call(method, params, &result); err != nil {
		fatal("%v", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(buf.String())
}

func readJSONFile(path string, target interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		fatal("parse %s: %v", path, err)
	}
}

func parseClaimID(s string) types.ClaimID {
	return types.ClaimID(parseUint(s, 64))
}

func parseTokenID(s string) types.TokenID {
	return types.TokenID(parseUint(s, 64))
}

func parseUint(s string, bits int) uint64 {
	n, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		fatal("invalid number %q", s)
	}
	return n
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Print(`claim-cli - client for the Klingnet claims service

Usage:
  claim-cli [--rpc <url>] [--key <file>] <command> [args]

Global Options:
  --rpc    RPC server URL (default: http://127.0.0.1:8645)
  --key    Private key file for authenticated commands (32-byte hex)

Key Commands:
  keygen <out-file>                         Generate a key and print its address

Claim Commands:
  init <collection> <claim-id> <config.json>      Initialize a claim
  update <collection> <claim-id> <config.json>    Update a claim
  get <collection> <claim-id>                     Show a claim
  get-for-token <collection> <token-id>           Resolve a token to its claim
  user-mints <collection> <claim-id> <address>    Units issued to an identity
  check-indices <collection> <claim-id> <i>...    Allow-list index consumption
  mint <collection> <claim-id> <count> <payment> [proofs.json]
  airdrop <collection> <claim-id> (<recipient> <count>)...
  locator <collection> <token-id>                 Token locator string
  extend <claim|token> <collection> <id> <segment>

Burn Commands:
  set-burn <collection> <claim-id> <spec.json>    Attach burn requirements
  redeem <collection> <claim-id> <multiplier> <payment> <submissions.json>

Ledger Commands:
  balance <address>                               Native balance
  balance <collection> <address> <token-id>       Fungible balance
  owner <collection> <token-id>                   Unit owner
`)
}
