package main

import (
	"outpost/internal/cli/cmd"
)

func main() {
	cmd.Execute()
}
