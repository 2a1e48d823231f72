// Command brewwater browses Hub'Eau drinking-water data and simulates brewing
// salt additions from the terminal.
//
// Usage:
//
//	brewwater departements
//	brewwater communes 69
//	brewwater networks 69123
//	brewwater report 069000123
//	brewwater simulate --base-network 069000123 --salt calciumSulfate=5 --volume 20
//	brewwater simulate --recipe recipe.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newLiveService).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
