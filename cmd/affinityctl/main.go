// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Command affinityctl inspects the scoring engine from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/affinity/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version
	if err := cli.New().Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
