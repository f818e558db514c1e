package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/drift-pay/drift-gateway/pkg/config"
	"github.com/drift-pay/drift-gateway/pkg/gateway"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/quote"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "drift-gateway",
		Short:         "cross-chain fan token payment gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(quoteCmd())
	root.AddCommand(payCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(pricesCmd())
	root.AddCommand(bridgeBalanceCmd())
	root.AddCommand(validatePoolsCmd())

	if err := root.Execute(); err != nil {
		report(err)
		os.Exit(1)
	}
}

// newLogger builds the logger selected by LOG_FORMAT
func newLogger(cfg config.LoggerConfig) (logger.Logger, error) {
	if cfg.Format == config.LogFormatJSON {
		log, err := logger.NewZapLogger(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to create zap logger: %v", err)
		}
		return log, nil
	}
	return logger.NewStdLogger(cfg.Coloring, cfg.Level), nil
}

// signalContext is cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-signalCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signalCh)
	}()
	return ctx, cancel
}

// connect loads the configuration and wires the gateway against both chains
func connect(ctx context.Context) (*gateway.Service, logger.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %v", err)
	}
	log, err := newLogger(cfg.LoggerConfig)
	if err != nil {
		return nil, nil, err
	}

	svc, err := gateway.NewService(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gateway service: %v", err)
	}
	return svc, log, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// report prints a quote error with its remedy, or any other error as is
func report(err error) {
	var qerr *quote.QuoteError
	if !errors.As(err, &qerr) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "quote failed: %s\n", qerr.Message)
	if qerr.Available != "" {
		fmt.Fprintf(os.Stderr, "bridge holds %s MCHZ, %s MCHZ needed\n", qerr.Available, qerr.Needed)
	}
	if qerr.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "suggestion: %s\n", qerr.Suggestion)
	}
}
