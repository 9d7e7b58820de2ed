package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var BuildVersion = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, BuildVersion)
	stop()
	os.Exit(code)
}
