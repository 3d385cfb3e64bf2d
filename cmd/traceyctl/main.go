// Command traceyctl is a thin RPC client for a running traceyd daemon.
//
// Usage:
//
//	traceyctl [-root path] <command> [args...]
//
// Commands:
//
//	status                       daemon version and spec count
//	forward [spec] [impl]        coverage for one spec/impl pair
//	reverse [spec] [impl]        references for one spec/impl pair
//	rule <id>                    detail for one rule id
//	config                       dump the workspace config
//	reload                       force a rebuild
//	search <query> [limit]       search the index
//	validate [rule-id]           run validation checks
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"tracey/internal/daemon"
	"tracey/internal/rpcclient"
	"tracey/internal/rpcserver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "traceyctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := flag.String("root", "", "workspace root (default: current directory)")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		return fmt.Errorf("usage: traceyctl [-root path] <command> [args...]")
	}

	wd := *root
	if wd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		wd = cwd
	}
	wd, err := filepath.Abs(wd)
	if err != nil {
		return err
	}

	client, err := rpcclient.Dial(daemon.SocketPath(wd))
	if err != nil {
		return fmt.Errorf("connecting to daemon (is it running?): %w", err)
	}
	defer client.Close()

	cmd, rest := args[0], args[1:]
	var result any
	var req any

	switch cmd {
	case "status":
		var r rpcserver.StatusResult
		err = client.Call(rpcserver.MethodStatus, nil, &r)
		result = r

	case "forward", "reverse":
		si := specImplFromArgs(rest)
		req = si
		methodID := rpcserver.MethodForward
		var fr rpcserver.ForwardResult
		var rr rpcserver.ReverseResult
		if cmd == "reverse" {
			methodID = rpcserver.MethodReverse
			err = client.Call(methodID, req, &rr)
			result = rr
		} else {
			err = client.Call(methodID, req, &fr)
			result = fr
		}

	case "rule":
		if len(rest) < 1 {
			return fmt.Errorf("usage: traceyctl rule <id>")
		}
		var r rpcserver.RuleInfo
		err = client.Call(rpcserver.MethodRule, rpcserver.RuleRequest{RuleID: rest[0]}, &r)
		result = r

	case "config":
		var r rpcserver.ConfigResult
		err = client.Call(rpcserver.MethodConfig, nil, &r)
		result = r

	case "reload":
		var r rpcserver.ReloadResult
		err = client.Call(rpcserver.MethodReload, nil, &r)
		result = r

	case "search":
		if len(rest) < 1 {
			return fmt.Errorf("usage: traceyctl search <query> [limit]")
		}
		limit := uint64(20)
		if len(rest) > 1 {
			fmt.Sscanf(rest[1], "%d", &limit)
		}
		var r []rpcserver.SearchResultWire
		err = client.Call(rpcserver.MethodSearch, rpcserver.SearchRequest{Query: rest[0], Limit: limit}, &r)
		result = r

	case "validate":
		ruleID := ""
		if len(rest) > 0 {
			ruleID = rest[0]
		}
		var r rpcserver.ValidateResultWire
		err = client.Call(rpcserver.MethodValidate, rpcserver.ValidateRequest{RuleID: ruleID}, &r)
		result = r

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func specImplFromArgs(args []string) rpcserver.SpecImplRequest {
	var si rpcserver.SpecImplRequest
	if len(args) > 0 {
		si.Spec = args[0]
	}
	if len(args) > 1 {
		si.Impl = args[1]
	}
	return si
}
