package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var (
	sendURL  string
	sendKind string
)

// samplePayloads mirrors the shapes the change feed actually produces, one
// per configured table. User ids need replacing with real profile ids that
// carry a registered push token before anything arrives on a device.
var samplePayloads = map[string]string{
	"booking": `{
		"table": "service_booking",
		"type": "INSERT",
		"record": {
			"id": "test-booking-123",
			"provider_id": "USER_ID_HERE",
			"buyer_id": "buyer-456",
			"service_name": "Test Service"
		}
	}`,
	"message": `{
		"table": "chats",
		"type": "INSERT",
		"record": {
			"id": "test-msg-123",
			"userid": "USER_ID_HERE",
			"isme": "sender-789",
			"text": "Hey, this is a test message!",
			"chat_id": "chat-789"
		}
	}`,
	"order": `{
		"table": "sale_order",
		"type": "INSERT",
		"record": {
			"id": "test-order-123",
			"seller_id": "USER_ID_HERE",
			"buyer_id": "buyer-456",
			"total_amount": 99.99
		}
	}`,
	"product": `{
		"table": "product",
		"type": "UPDATE",
		"record": {
			"id": "test-product-123",
			"name": "Test Product",
			"owner_id": "owner-456",
			"tagged_profiles_ids": ["USER_ID_HERE", "other-user"]
		},
		"old_record": {
			"tagged_profiles_ids": ["other-user"]
		}
	}`,
	"profile": `{
		"table": "kyc_profile",
		"type": "INSERT",
		"record": {
			"id": "USER_ID_HERE",
			"username": "Test User"
		}
	}`,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a sample change-event payload to the webhook endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, ok := samplePayloads[sendKind]
		if !ok {
			return fmt.Errorf("unknown payload kind %q, choose one of: %s", sendKind, kindList())
		}

		fmt.Printf("Sending %s payload to %s/notify-user\n", sendKind, sendURL)

		resp, err := http.Post(sendURL+"/notify-user", "application/json", bytes.NewBufferString(payload))
		if err != nil {
			return fmt.Errorf("could not reach webhook service: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		fmt.Printf("Status: %d\n", resp.StatusCode)
		fmt.Printf("Body: %s\n", strings.TrimSpace(string(body)))
		return nil
	},
}

func kindList() string {
	kinds := make([]string, 0, len(samplePayloads))
	for k := range samplePayloads {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return strings.Join(kinds, ", ")
}

func init() {
	sendCmd.Flags().StringVar(&sendURL, "url", "http://localhost:8080", "base URL of the webhook service")
	sendCmd.Flags().StringVar(&sendKind, "kind", "booking", "payload kind: "+kindList())
	rootCmd.AddCommand(sendCmd)
}
