// Command gridctl runs the grid pipeline offline: it loads rows from a JSON
// or CSV file, applies a saved preset plus any flag overrides, and prints the
// resulting page, facets or totals.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
