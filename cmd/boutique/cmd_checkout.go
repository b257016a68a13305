package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/checkout"
	"github.com/rituelsdebene/boutique/pkg/stripe"
)

var (
	checkoutStatePath string
	checkoutAPIURL    string
)

// boutique checkout:save < state.json
var checkoutSaveCmd = &cobra.Command{
	Use:   "checkout:save",
	Short: "Store the checkout state read from stdin before leaving for payment",
	RunE: func(cmd *cobra.Command, args []string) error {
		var st checkout.State
		if err := json.NewDecoder(cmd.InOrStdin()).Decode(&st); err != nil {
			return fmt.Errorf("checkout:save: decode state: %w", err)
		}
		return checkout.NewFileStore(checkoutStatePath).Save(cmd.Context(), st)
	},
}

// boutique checkout:confirm <return-url>
var checkoutConfirmCmd = &cobra.Command{
	Use:   "checkout:confirm <return-url>",
	Short: "Confirm a payment from its return URL and finalize the order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		gateway := stripe.New(stripe.Config{
			PublishableKey: config.StripePublishableKey(),
			BaseURL:        config.StripeAPIBase(),
			Timeout:        config.OutboundTimeout(),
		})
		api := checkout.NewStorefront(checkoutAPIURL).Timeout(config.OutboundTimeout())
		bridge := checkout.New(gateway, api, checkout.NewFileStore(checkoutStatePath))

		res, err := bridge.Confirm(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if res.AlreadyFinalized {
			fmt.Fprintf(out, "Payment %s: order already finalized.\n", res.PaymentIntent)
			return nil
		}
		fmt.Fprintf(out, "Payment %s: order #%d created (%s €).\n",
			res.PaymentIntent, res.OrderID, res.Receipt.Total.StringFixed(2))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{checkoutSaveCmd, checkoutConfirmCmd} {
		c.Flags().StringVar(&checkoutStatePath, "state", ".checkout/state.json", "checkout state file")
	}
	checkoutConfirmCmd.Flags().StringVar(&checkoutAPIURL, "api", "http://localhost:8080", "storefront API base URL")
}
