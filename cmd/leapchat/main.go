// Command leapchat is a chat front end for a text-to-SQL backend.
package main

import (
	"os"

	"github.com/leapstack-labs/leapchat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
