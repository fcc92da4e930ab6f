// Command branchpoll publishes conditional polls, records submissions and
// serves the participation API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/branchpoll/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Commands print their own errors; anything else is an argument error.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
