package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeOrders    = "orders-service"
	ModeKitchen   = "kitchen-service"
	ModeWarehouse = "warehouse-service"
	ModeAuth      = "auth-service"
	ModeNotify    = "notification-subscriber"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeOrders, "orders":
		return ModeOrders, true
	case ModeKitchen, "kitchen":
		return ModeKitchen, true
	case ModeWarehouse, "warehouse":
		return ModeWarehouse, true
	case ModeAuth, "auth":
		return ModeAuth, true
	case ModeNotify, "notify":
		return ModeNotify, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `orders-service --prefetch=4`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--mode=") {
			mode = strings.TrimPrefix(arg, "--mode=")
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, nil
	}

	if m, ok := isKnownMode(mode); ok {
		return m, out, nil
	}
	return "", out, fmt.Errorf("unknown mode %q", mode)
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // switch the color to cyan

	fmt.Fprintln(w, `Usage:
  ./restaurant-fulfillment --mode=<service> [flags]

Services (modes):
  orders-service             owns order records and their lifecycle
  kitchen-service            picks recipes and drives orders to completion
  warehouse-service          reserves ingredient stock, restocks from the market
  auth-service               issues and verifies operator tokens
  notification-subscriber    prints every order update broadcast

Examples:
  ./restaurant-fulfillment --mode=orders-service --prefetch=8
  ./restaurant-fulfillment --mode=kitchen-service
  ./restaurant-fulfillment --mode=warehouse-service --prefetch=4
  ./restaurant-fulfillment --mode=auth-service
  ./restaurant-fulfillment --mode=notification-subscriber`)

	fmt.Fprint(w, "\033[0m") // switch back to normal
}

func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./restaurant-fulfillment --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
