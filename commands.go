package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/chainclient"
	"github.com/drift-pay/drift-gateway/pkg/chains"
	"github.com/drift-pay/drift-gateway/pkg/gateway"
	"github.com/drift-pay/drift-gateway/pkg/models"
	"github.com/spf13/cobra"
)

// pollInterval is how often pay refreshes the intent it is following
const pollInterval = 2 * time.Second

var errUnhealthyPools = errors.New("one or more pools are unhealthy")

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the health and metrics server with the gas price routines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			svc, log, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			log.Info("Starting the payment gateway...")
			svc.Start(ctx)
			return nil
		},
	}
}

func quoteCmd() *cobra.Command {
	var paymentToken string
	cmd := &cobra.Command{
		Use:     "quote <fanToken> <amount>",
		Short:   "price a fan token purchase in USDC or USDT",
		Example: "drift-gateway quote PSG 10 --pay USDT",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			svc, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			q, err := svc.GetQuote(ctx, strings.ToUpper(args[0]), args[1], strings.ToUpper(paymentToken))
			if err != nil {
				return err
			}
			return printJSON(q)
		},
	}
	cmd.Flags().StringVar(&paymentToken, "pay", chains.SymbolUSDC, "payment token: USDC or USDT")
	return cmd
}

func payCmd() *cobra.Command {
	var (
		paymentToken string
		merchant     string
		user         string
		buyerKey     string
		webhooks     []string
	)
	cmd := &cobra.Command{
		Use:   "pay <fanToken> <amount>",
		Short: "create a payment intent, execute it and follow its saga",
		Long: "Without --buyer-key the operator pulls the quoted amount from --user, which must have approved it.\n" +
			"Example: drift-gateway pay PSG 10 --merchant 0x... --user 0x...",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if buyerKey == "" {
				buyerKey = os.Getenv("BUYER_PRIVATE_KEY")
			}
			var buyer *chainclient.Wallet
			if buyerKey != "" {
				wallet, err := chainclient.NewWallet(buyerKey)
				if err != nil {
					return err
				}
				buyer = wallet
				if user == "" {
					user = wallet.Address.Hex()
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			svc, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			intent, err := svc.CreateIntent(ctx, gateway.CreateIntentRequest{
				MerchantAddress: merchant,
				UserAddress:     user,
				FanTokenSymbol:  strings.ToUpper(args[0]),
				FanTokenAmount:  args[1],
				PaymentToken:    strings.ToUpper(paymentToken),
				WebhookURLs:     webhooks,
			})
			if err != nil {
				return err
			}
			fmt.Printf("payment: %s\n", intent.ID)
			fmt.Printf("paying: %s %s for %s %s\n", intent.Quote.PaymentTokenNeeded, intent.PaymentToken,
				intent.FanTokenAmount, intent.FanTokenSymbol)
			fmt.Printf("route: %s\n\n", intent.Quote.Route)

			if err := svc.ExecuteIntent(ctx, intent.ID, buyer); err != nil {
				return err
			}
			return follow(ctx, svc, intent.ID)
		},
	}
	cmd.Flags().StringVar(&paymentToken, "pay", chains.SymbolUSDC, "payment token: USDC or USDT")
	cmd.Flags().StringVar(&merchant, "merchant", "", "merchant address receiving the fan tokens")
	cmd.Flags().StringVar(&user, "user", "", "user address paying, defaults to the buyer key address")
	cmd.Flags().StringVar(&buyerKey, "buyer-key", "", "buyer private key signing the payment (or BUYER_PRIVATE_KEY)")
	cmd.Flags().StringArrayVar(&webhooks, "webhook", nil, "webhook URL notified on every step, repeatable")
	_ = cmd.MarkFlagRequired("merchant")
	return cmd
}

// follow prints step transitions until the saga finishes or ctx is cancelled
func follow(ctx context.Context, svc *gateway.Service, paymentID string) error {
	seen := make(map[models.StepName]models.StepStatus)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		intent, err := svc.GetIntent(context.WithoutCancel(ctx), paymentID)
		if err != nil {
			return err
		}
		for _, name := range models.StepOrder {
			step := intent.Steps.Get(name)
			if seen[name] == step.Status {
				continue
			}
			seen[name] = step.Status
			line := fmt.Sprintf("%-20s %s", name, step.Status)
			if step.TransactionHash != "" {
				line += " tx=" + step.TransactionHash
			}
			if step.ViaFallback {
				line += " fallback=" + string(step.Fallback)
			}
			if step.Error != "" {
				line += " error=" + step.Error
			}
			fmt.Println(line)
		}
		if intent.IsTerminal() {
			fmt.Printf("\nstatus: %s\n", intent.Status)
			if intent.FinalTransactionHash != nil {
				fmt.Printf("final tx: %s\n", *intent.FinalTransactionHash)
			}
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			fmt.Println("interrupted, waiting for the saga to finish")
			return nil
		}
	}
}

func statusCmd() *cobra.Command {
	var (
		history bool
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "status [paymentId]",
		Short: "show a mirrored payment, or the latest payments with --history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			svc, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if history || len(args) == 0 {
				records, err := svc.History(ctx, limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("no payments recorded")
					return nil
				}
				for _, r := range records {
					fmt.Printf("%s  %-10s %s %s for %s %s  %s\n", r.CreatedAt.Format(time.RFC3339), r.Status,
						r.FanTokenAmount, r.FanTokenSymbol, r.PaymentTokenAmount, r.PaymentToken, r.PaymentID)
				}
				return nil
			}

			record, err := svc.Record(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(record)
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "list the latest payments")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of payments listed with --history")
	return cmd
}

func pricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "list fan tokens obtainable for one CHZ",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			svc, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			prices, err := svc.FanTokenPrices(ctx)
			if err != nil {
				return err
			}
			for _, p := range prices {
				fmt.Printf("%-6s %s per CHZ\n", p.Symbol, p.FanTokensPerCHZ)
			}
			return nil
		},
	}
}

func bridgeBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bridge-balance",
		Short: "show the MCHZ collateral locked in the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			svc, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			balance, err := svc.BridgeBalance(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("bridge: %s MCHZ\n", chains.FormatBaseUnits(balance, chains.PriceDecimals))
			return nil
		},
	}
}

func validatePoolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-pools",
		Short: "check every pool a payment can route through",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			svc, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			healthy := true
			for _, status := range svc.ValidatePools(ctx) {
				switch {
				case status.Error != "":
					healthy = false
					fmt.Printf("%-10s error: %s\n", status.Pair, status.Error)
				case !status.Exists:
					fmt.Printf("%-10s missing\n", status.Pair)
				case !status.Healthy:
					healthy = false
					fmt.Printf("%-10s empty at %s\n", status.Pair, status.Address.Hex())
				default:
					fmt.Printf("%-10s ok at %s (%s / %s)\n", status.Pair, status.Address.Hex(), status.Reserve0, status.Reserve1)
				}
			}
			if !healthy {
				return errUnhealthyPools
			}
			return nil
		},
	}
}
