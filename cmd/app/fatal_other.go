//go:build !windows

package main

import (
	"fmt"
	"os"
)

func reportFatal(err error) {
	fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
}
