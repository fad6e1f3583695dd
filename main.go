package main

import (
	"fmt"
	"os"

	"github.com/doismellburning/samoyed/cmd"
)

// version and commit are stamped at build time via -ldflags
// "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := cmd.NewCommand(version, commit).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
