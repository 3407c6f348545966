package cmd

import (
	"context"
	"fmt"
	"time"

	"cueloop.dev/cueloop/internal/command"
	"cueloop.dev/cueloop/internal/core"
)

// newClient dials the control socket and verifies the daemon is alive.
func newClient() (*command.UDSClient, context.Context) {
	client := command.NewUDSClient(socketPath, 10*time.Second)
	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		exitWithError(core.ErrDaemonNotActive.Error(), err)
	}
	return client, ctx
}

// checkResponse exits on a command-level error and otherwise prints the
// textual result, if any.
func checkResponse(resp *command.Response, err error, what string) {
	if err != nil {
		exitWithError(fmt.Sprintf("failed to send %s command", what), err)
	}
	if resp.Error != nil {
		exitWithError(fmt.Sprintf("%s failed: %s", what, resp.Error.Message), nil)
	}
	if msg, ok := resp.Result.(string); ok {
		fmt.Println(msg)
	}
}
