package mock

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"
)

// Environment variables understood by RunHelperProcess.
const (
	HelperEnv       = "GO_WANT_HELPER_PROCESS"
	HelperConfigEnv = "MOCK_MCP_CONFIG"
)

// RunHelperProcess serves the mock configured by MOCK_MCP_CONFIG on
// stdin/stdout and exits. It is a no-op unless GO_WANT_HELPER_PROCESS=1, so a
// test binary can re-execute itself as an MCP server:
//
//	func TestHelperProcess(t *testing.T) { mock.RunHelperProcess() }
func RunHelperProcess() {
	if os.Getenv(HelperEnv) != "1" {
		return
	}

	cfg, err := ParseConfig([]byte(os.Getenv(HelperConfigEnv)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "mock server %s ready\n", cfg.Name)
	if err := NewServer(cfg).ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.LingerAfterClose > 0 {
		time.Sleep(cfg.LingerAfterClose)
	}
	os.Exit(0)
}

// HelperCommand returns the command line that re-executes the running test
// binary as a mock server, plus the extra environment it needs.
func HelperCommand(cfgYAML string) (string, []string, []string) {
	args := []string{"-test.run=^TestHelperProcess$", "--"}
	env := []string{HelperEnv + "=1", HelperConfigEnv + "=" + cfgYAML}
	return os.Args[0], args, env
}
