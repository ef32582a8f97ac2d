// Command sinkctl is the administrative CLI for a running masterd: it
// issues the same JSON-RPC calls an operator dashboard would, over HTTP,
// mirroring the flag-driven, one-shot-command style of validator-cli
// (cmd/validator-cli/main.go) but talking to this engine's own RPC
// surface instead of signing on-chain transactions directly.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type rpcRequest struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
	ID     int         `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	ID int `json:"id"`
}

func call(endpoint, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// masterd zero-pads every response body to a 256-byte block.
	raw = bytes.TrimRight(raw, "\x00")

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("decoding response for %s: %w (body: %s)", method, err, raw)
	}
	if rr.Error != nil {
		return nil, fmt.Errorf("%s failed: %s (code %d)", method, rr.Error.Message, rr.Error.Code)
	}
	return rr.Result, nil
}

func main() {
	var (
		endpoint = flag.String("endpoint", "http://localhost:8080/rpc", "masterd RPC endpoint")

		cmdSetWeights   = flag.Bool("set-weights", false, "retarget sink weights")
		cmdChangeAdmin  = flag.Bool("change-admin", false, "change the master's admin")
		cmdStop         = flag.Bool("stop", false, "stop the staking contract")
		cmdResume       = flag.Bool("resume", false, "resume the staking contract")
		cmdSetDeadline  = flag.Bool("set-deadline", false, "settle and extend the staking deadline")
		cmdClaimPool    = flag.Bool("claim-pool", false, "sweep the staking reward pool to the admin")
		cmdDevRedeem    = flag.Bool("devfund-redeem", false, "redeem dev-fund accrued rewards")
		cmdDevRefresh   = flag.Bool("devfund-refresh", false, "refresh the dev-fund's live balance")
		cmdQueryRewards = flag.Bool("query-rewards", false, "query a staker's pending rewards")
		cmdQueryDeposit = flag.Bool("query-deposit", false, "query a staker's locked deposit")

		caller      = flag.String("caller", "", "caller address")
		now         = flag.Uint64("now", 0, "current block height")
		address     = flag.String("address", "", "target address (weight entry, staker, redeem beneficiary)")
		codeHash    = flag.String("code-hash", "", "target contract code hash")
		weight      = flag.Uint64("weight", 0, "weight to assign")
		newAdmin    = flag.String("new-admin", "", "new admin address")
		newDeadline = flag.Uint64("new-deadline", 0, "new staking deadline (block height)")
		liveBalance = flag.String("live-balance", "0", "externally queried live token balance")
		viewingKey  = flag.String("viewing-key", "", "viewing key for an authenticated query")
		devfundAddr = flag.String("devfund-address", "", "dev-fund contract address")
		devfundHash = flag.String("devfund-hash", "", "dev-fund contract code hash")
		redeemTo    = flag.String("to", "", "redeem destination address")
		amount      = flag.String("amount", "", "amount (decimal string); omitted means full balance")
	)
	flag.Parse()

	switch {
	case *cmdSetWeights:
		result, err := call(*endpoint, "set_weights", map[string]interface{}{
			"caller": *caller,
			"now":    *now,
			"entries": []map[string]interface{}{
				{"address": *address, "code_hash": *codeHash, "weight": *weight},
			},
		})
		report("set_weights", result, err)

	case *cmdChangeAdmin:
		result, err := call(*endpoint, "change_admin", map[string]interface{}{
			"caller":    *caller,
			"new_admin": *newAdmin,
		})
		report("change_admin", result, err)

	case *cmdStop:
		result, err := call(*endpoint, "stop_contract", map[string]interface{}{"caller": *caller})
		report("stop_contract", result, err)

	case *cmdResume:
		result, err := call(*endpoint, "resume_contract", map[string]interface{}{"caller": *caller})
		report("resume_contract", result, err)

	case *cmdSetDeadline:
		result, err := call(*endpoint, "set_deadline", map[string]interface{}{
			"caller":       *caller,
			"now":          *now,
			"new_deadline": *newDeadline,
		})
		report("set_deadline", result, err)

	case *cmdClaimPool:
		result, err := call(*endpoint, "claim_reward_pool", map[string]interface{}{
			"caller":       *caller,
			"now":          *now,
			"live_balance": *liveBalance,
		})
		report("claim_reward_pool", result, err)

	case *cmdDevRedeem:
		params := map[string]interface{}{
			"now":          *now,
			"devfund_addr": *devfundAddr,
			"devfund_hash": *devfundHash,
			"caller":       *caller,
			"to":           *redeemTo,
		}
		if *amount != "" {
			params["amount"] = *amount
		}
		result, err := call(*endpoint, "devfund_redeem", params)
		report("devfund_redeem", result, err)

	case *cmdDevRefresh:
		result, err := call(*endpoint, "devfund_refresh_balance", map[string]interface{}{
			"caller":       *caller,
			"live_balance": *liveBalance,
		})
		report("devfund_refresh_balance", result, err)

	case *cmdQueryRewards:
		result, err := call(*endpoint, "query_rewards", map[string]interface{}{
			"address": *address,
			"key":     *viewingKey,
			"now":     *now,
		})
		report("query_rewards", result, err)

	case *cmdQueryDeposit:
		result, err := call(*endpoint, "query_deposit", map[string]interface{}{
			"address": *address,
			"key":     *viewingKey,
		})
		report("query_deposit", result, err)

	default:
		printHelp()
	}
}

func report(method string, result json.RawMessage, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s\n", method, result)
}

func printHelp() {
	fmt.Println("sinkctl - reward engine administrative CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  -set-weights       Retarget a sink's weight")
	fmt.Println("  -change-admin      Change the master's admin")
	fmt.Println("  -stop              Stop the staking contract")
	fmt.Println("  -resume            Resume the staking contract")
	fmt.Println("  -set-deadline      Settle and extend the staking deadline")
	fmt.Println("  -claim-pool        Sweep the staking reward pool")
	fmt.Println("  -devfund-redeem    Redeem dev-fund accrued rewards")
	fmt.Println("  -devfund-refresh   Refresh the dev-fund's live balance")
	fmt.Println("  -query-rewards     Query a staker's pending rewards")
	fmt.Println("  -query-deposit     Query a staker's locked deposit")
	fmt.Println()
	fmt.Println("Run with -h for the full flag list.")
}
