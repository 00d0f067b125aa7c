package main

import "polystore/internal/cli/cmd"

func main() {
	cmd.Execute()
}
