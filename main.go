// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/cartobdx/cartobdx/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
