// Command bidwright drafts RFP responses with a four-agent language model
// pipeline.
package main

import (
	"os"

	"github.com/custodia-labs/bidwright/internal/adapters/driving/cli"
	"github.com/custodia-labs/bidwright/internal/logger"
)

func main() {
	err := cli.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
