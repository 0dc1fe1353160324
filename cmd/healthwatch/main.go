package main

import (
	"os"

	"healthwatch/cmd/healthwatch/commands"
)

func main() {
	os.Exit(commands.Execute())
}
