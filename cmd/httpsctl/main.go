// Command httpsctl sends HTTP/HTTPS requests through the poll-driven
// transaction manager and prints each outcome.
//
//	httpsctl -c config.yml -H 'Accept: application/json' https://example.com/health
package main

import (
	"os"

	"github.com/kbukum/httpsmgr/logger"
)

const serviceName = "httpsctl"

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		logger.Fatal("httpsctl failed", logger.ErrorFields("run", err))
	}
}
