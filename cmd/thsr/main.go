package main

import (
	"context"
	"thsr-booker/cmd/thsr/commands"
	"thsr-booker/lib/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext(context.Background())
	defer stop()
	commands.ExecuteContext(ctx)
}
