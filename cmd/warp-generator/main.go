package main

import (
	"context"
	"os"

	"github.com/lanrat/wireguard-warp-generator/cmd/warp-generator/cmd"
)

func main() {
	os.Exit(cmd.Execute(context.Background()))
}
