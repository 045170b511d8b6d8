// cloverctl is a command line client for the clover API.
//
// Usage:
//
//	cloverctl asset-manager register catalog-a
//	cloverctl element create Asset --qualified-name asset:orders --asset-manager <guid> --identifier orders-1
//	cloverctl correlation lookup <element-guid> <asset-manager-guid>
//	cloverctl relationship attach ConnectionToAsset <connection-guid> <asset-guid>
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
