// Small helper to check ERC-20 balances and the agent's spend allowance on
// the testnet USDC used for rewards. Reads RPC_ENDPOINT from the environment;
// addresses are passed as arguments.
//
// Usage: check-balance [-token addr] [-owner addr] [-spender addr] <address>...
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
  {"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const defaultUSDC = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238" // Sepolia testnet USDC

var usdcUnit = big.NewFloat(1_000_000) // 6 decimals

func main() {
	token := flag.String("token", defaultUSDC, "ERC-20 token address")
	owner := flag.String("owner", "", "allowance owner address (optional)")
	spender := flag.String("spender", "", "allowance spender address (optional)")
	flag.Parse()

	endpoint := strings.TrimSpace(os.Getenv("RPC_ENDPOINT"))
	if endpoint == "" {
		fatal("RPC_ENDPOINT is not set")
	}
	if flag.NArg() == 0 && (*owner == "" || *spender == "") {
		fatal("provide at least one address to check")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		fatal("dial %s: %v", endpoint, err)
	}
	defer client.Close()

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		fatal("parse abi: %v", err)
	}
	tokenAddr := common.HexToAddress(*token)

	for _, arg := range flag.Args() {
		if !common.IsHexAddress(arg) {
			fatal("bad address %q", arg)
		}
		addr := common.HexToAddress(arg)
		balance, err := callUint(ctx, client, parsed, tokenAddr, "balanceOf", addr)
		if err != nil {
			fatal("balanceOf %s: %v", addr.Hex(), err)
		}
		fmt.Printf("Balance of %s: %s USDC\n", addr.Hex(), toUnits(balance))
	}

	if *owner != "" && *spender != "" {
		if !common.IsHexAddress(*owner) || !common.IsHexAddress(*spender) {
			fatal("bad owner/spender address")
		}
		allowance, err := callUint(ctx, client, parsed, tokenAddr, "allowance",
			common.HexToAddress(*owner), common.HexToAddress(*spender))
		if err != nil {
			fatal("allowance: %v", err)
		}
		fmt.Printf("Allowance %s -> %s: %s USDC\n", *owner, *spender, toUnits(allowance))
	}
}

func callUint(
	ctx context.Context,
	client *ethclient.Client,
	parsed abi.ABI,
	token common.Address,
	method string,
	args ...any,
) (*big.Int, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	vals, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, err
	}
	res, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", vals[0])
	}
	return res, nil
}

func toUnits(wei *big.Int) string {
	return new(big.Float).Quo(new(big.Float).SetInt(wei), usdcUnit).Text('f', 6)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
