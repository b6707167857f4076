package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aussiebroadwan/domainvault/internal/vault/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "vault:", err)
		os.Exit(cli.ExitCode(err))
	}
}
