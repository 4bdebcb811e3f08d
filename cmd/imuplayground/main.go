//go:build !tinygo

package main

import "github.com/stratux/imuplayground/internal/cli"

func main() {
	cli.Execute()
}
