package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyshare/internal/domain"
)

var (
	subEndpoint   string
	subP256dh     string
	subAuth       string
	subPermission bool
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Manage the server-side push subscription",
}

var notificationsSubscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Register a push subscription with the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !subPermission {
			return &domain.PermissionError{Capability: "notification"}
		}
		err := apiClient.SubscribeNotification(cmd.Context(), domain.PushSubscription{
			Endpoint: subEndpoint,
			Keys: domain.PushSubscriptionKeys{
				P256dh: subP256dh,
				Auth:   subAuth,
			},
		})
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		fmt.Println("subscribed")
		return nil
	},
}

var notificationsUnsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Remove a push subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.UnsubscribeNotification(cmd.Context(), subEndpoint); err != nil {
			return fmt.Errorf("unsubscribe: %w", err)
		}
		fmt.Println("unsubscribed")
		return nil
	},
}

func init() {
	notificationsSubscribeCmd.Flags().StringVar(&subEndpoint, "endpoint", "", "push service endpoint URL")
	notificationsSubscribeCmd.Flags().StringVar(&subP256dh, "p256dh", "", "client public key")
	notificationsSubscribeCmd.Flags().StringVar(&subAuth, "auth", "", "client auth secret")
	notificationsSubscribeCmd.Flags().BoolVar(&subPermission, "notifications", true, "treat the notification permission as granted")
	_ = notificationsSubscribeCmd.MarkFlagRequired("endpoint")

	notificationsUnsubscribeCmd.Flags().StringVar(&subEndpoint, "endpoint", "", "push service endpoint URL")
	_ = notificationsUnsubscribeCmd.MarkFlagRequired("endpoint")

	notificationsCmd.AddCommand(notificationsSubscribeCmd, notificationsUnsubscribeCmd)
	rootCmd.AddCommand(notificationsCmd)
}
