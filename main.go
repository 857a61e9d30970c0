package main

import (
	"os"

	"ride-etl/commands"
)

func main() {
	os.Exit(commands.Main(os.Args))
}
