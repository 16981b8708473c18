// Command pqa audits drill-pack corpora for duplicate content, scenario
// vocabulary coverage and slot variation.
//
// Usage:
//
//	pqa audit ./packs              # gate a corpus, exit 2 on RED
//	pqa similarity "a" "b"         # explain one pair score
//	pqa serve                      # MCP server on stdio
package main

import (
	"errors"
	"fmt"
	"os"
)

// errGateFailed marks an audit whose status reached --fail-on.
var errGateFailed = errors.New("quality gate failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errGateFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
