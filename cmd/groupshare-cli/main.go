// Command groupshare-cli signs in to a groupshare server with magic links
// and keeps the session in a file or the OS keychain.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultStore).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
