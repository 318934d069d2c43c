package main

import (
	"os"

	cmd "github.com/kerbaras/anonclone/cmd/anonclone"
)

func main() {
	os.Exit(cmd.Execute())
}
