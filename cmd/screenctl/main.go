// Command screenctl produces history summaries, CSV exports and chart feeds
// from a JSON dump of prediction records or straight from the database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
