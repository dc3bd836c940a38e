// Command acquictl signs and sends terminal API requests from the merchant's
// side, for poking at a running acquirer by hand.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/acquisim/internal/client"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

type requestFlags struct {
	notificationURL string
	successURL      string
	failURL         string
	password        string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.notificationURL, "notification-url", "http://localhost:8081/notifications", "Merchant notification endpoint")
	cmd.Flags().StringVar(&f.successURL, "success-url", "http://localhost:8081/success", "Redirect target on success")
	cmd.Flags().StringVar(&f.failURL, "fail-url", "http://localhost:8081/fail", "Redirect target on failure")
	cmd.Flags().StringVarP(&f.password, "password", "p", os.Getenv("TERMINAL_PASSWORD"), "Terminal password (defaults to $TERMINAL_PASSWORD)")
}

func (f *requestFlags) terminal() (secret.Secret, error) {
	if f.password == "" {
		return secret.Secret{}, fmt.Errorf("terminal password is required")
	}
	return secret.New(f.password), nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "acquictl",
		Short: "Merchant-side tool for the acquirer terminal API",
	}

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(initPaymentCmd())
	rootCmd.AddCommand(registerCardTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print request tokens without sending anything",
	}
	cmd.AddCommand(paymentTokenCmd())
	cmd.AddCommand(cardTokenCmd())
	return cmd
}

func paymentTokenCmd() *cobra.Command {
	var flags requestFlags
	var amount int64

	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Token for an InitPayment request",
		RunE: func(cmd *cobra.Command, args []string) error {
			terminal, err := flags.terminal()
			if err != nil {
				return err
			}
			tok, _, err := client.SignInitPayment(client.InitPaymentRequest{
				NotificationURL: flags.notificationURL,
				SuccessURL:      flags.successURL,
				FailURL:         flags.failURL,
				Amount:          amount,
			}, terminal)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Int64VarP(&amount, "amount", "a", 100, "Amount in minor units")
	return cmd
}

func cardTokenCmd() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "card",
		Short: "Token for a RegisterCardToken request",
		RunE: func(cmd *cobra.Command, args []string) error {
			terminal, err := flags.terminal()
			if err != nil {
				return err
			}
			tok, _, err := client.SignRegisterCardToken(client.RegisterCardTokenRequest{
				NotificationURL: flags.notificationURL,
				SuccessURL:      flags.successURL,
				FailURL:         flags.failURL,
			}, terminal)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func initPaymentCmd() *cobra.Command {
	var flags requestFlags
	var amount int64
	var addr string

	cmd := &cobra.Command{
		Use:   "init-payment",
		Short: "Open a payment session and print the payment page URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			terminal, err := flags.terminal()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			pageURL, err := client.New(addr, terminal).InitPayment(ctx, client.InitPaymentRequest{
				NotificationURL: flags.notificationURL,
				SuccessURL:      flags.successURL,
				FailURL:         flags.failURL,
				Amount:          amount,
			})
			if err != nil {
				return fmt.Errorf("init payment: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pageURL)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Int64VarP(&amount, "amount", "a", 100, "Amount in minor units")
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "Acquirer base URL")
	return cmd
}

func registerCardTokenCmd() *cobra.Command {
	var flags requestFlags
	var addr string

	cmd := &cobra.Command{
		Use:   "register-card",
		Short: "Open a card token session and print the registration page URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			terminal, err := flags.terminal()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			pageURL, err := client.New(addr, terminal).RegisterCardToken(ctx, client.RegisterCardTokenRequest{
				NotificationURL: flags.notificationURL,
				SuccessURL:      flags.successURL,
				FailURL:         flags.failURL,
			})
			if err != nil {
				return fmt.Errorf("register card token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pageURL)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "Acquirer base URL")
	return cmd
}
