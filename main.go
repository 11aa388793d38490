package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"restaurant-fulfillment/cmd/authservice"
	"restaurant-fulfillment/cmd/kitchenservice"
	"restaurant-fulfillment/cmd/notificationservice"
	"restaurant-fulfillment/cmd/ordersservice"
	"restaurant-fulfillment/cmd/warehouseservice"
	"restaurant-fulfillment/internal/cli"
)

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}
	if mode == "" {
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case cli.ModeNotify:
		if err := notificationservice.Run(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		fs := flag.NewFlagSet(mode, flag.ContinueOnError)
		prefetch := fs.Int("prefetch", 8, "RabbitMQ prefetch count")
		cli.AttachUsage(fs, mode)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if *prefetch <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --prefetch must be > 0")
			fs.Usage()
			os.Exit(2)
		}

		var run func(context.Context, int) error
		switch mode {
		case cli.ModeOrders:
			run = ordersservice.Run
		case cli.ModeKitchen:
			run = kitchenservice.Run
		case cli.ModeWarehouse:
			run = warehouseservice.Run
		case cli.ModeAuth:
			run = authservice.Run
		}
		if err := run(ctx, *prefetch); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	}
}
