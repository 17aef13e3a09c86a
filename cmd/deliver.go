package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"prmirror/internal/bootstrap/config"
	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/transport/httpapi"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Sign a JSON payload and POST it to a webhook endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		target, _ := cmd.Flags().GetString("url")
		event, _ := cmd.Flags().GetString("event")
		file, _ := cmd.Flags().GetString("file")
		deliveryID, _ := cmd.Flags().GetString("delivery")
		secret, _ := cmd.Flags().GetString("secret")

		if strings.TrimSpace(secret) == "" {
			cfg, err := config.Load(ctx, cfgFile)
			if err != nil {
				return errs.Wrap(err, "load config")
			}
			secret = cfg.Webhook.Secret
		}

		payload, err := readPayload(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}

		out, err := deliverPayload(ctx, &http.Client{Timeout: 30 * time.Second}, deliveryInput{
			URL:        target,
			Event:      event,
			DeliveryID: deliveryID,
			Secret:     secret,
			Payload:    payload,
		})
		if err != nil {
			logging.Error(ctx, "deliver payload failed", slog.Any("err", errs.Loggable(err)))
			return err
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "delivery %s -> %d\n%s\n", out.DeliveryID, out.StatusCode, strings.TrimSpace(string(out.Body))); err != nil {
			return errs.Wrap(err, "write deliver output")
		}
		if out.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("webhook endpoint answered %d", out.StatusCode)
		}
		return nil
	},
}

type deliveryInput struct {
	URL        string
	Event      string
	DeliveryID string
	Secret     string
	Payload    []byte
}

type deliveryResult struct {
	DeliveryID string
	StatusCode int
	Body       []byte
}

func init() {
	rootCmd.AddCommand(deliverCmd)

	deliverCmd.Flags().String("url", "http://localhost:8080"+httpapi.WebhookPath, "Webhook endpoint URL")
	deliverCmd.Flags().String("event", "", "X-GitHub-Event value, for example pull_request")
	deliverCmd.Flags().String("file", "-", "Payload JSON file (- for stdin)")
	deliverCmd.Flags().String("delivery", "", "X-GitHub-Delivery value (random UUID when empty)")
	deliverCmd.Flags().String("secret", "", "Signing secret (defaults to webhook.secret)")
	_ = deliverCmd.MarkFlagRequired("event")
}

func readPayload(stdin io.Reader, file string) ([]byte, error) {
	file = strings.TrimSpace(file)
	if file == "" || file == "-" {
		payload, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errs.Wrap(err, "read payload from stdin")
		}
		return payload, nil
	}
	payload, err := os.ReadFile(file)
	if err != nil {
		return nil, errs.Wrapf(err, "read payload file %s", file)
	}
	return payload, nil
}

func deliverPayload(ctx context.Context, client *http.Client, input deliveryInput) (deliveryResult, error) {
	if strings.TrimSpace(input.Secret) == "" {
		return deliveryResult{}, errors.New("signing secret is required")
	}
	if strings.TrimSpace(input.Event) == "" {
		return deliveryResult{}, errors.New("event is required")
	}
	if !webhook.IsJSONObject(input.Payload) {
		return deliveryResult{}, errors.New("payload must be a JSON object")
	}

	deliveryID := strings.TrimSpace(input.DeliveryID)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, input.URL, bytes.NewReader(input.Payload))
	if err != nil {
		return deliveryResult{}, errs.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "prmirror-deliver")
	req.Header.Set("X-GitHub-Event", strings.TrimSpace(input.Event))
	req.Header.Set("X-GitHub-Delivery", deliveryID)
	req.Header.Set("X-Hub-Signature-256", webhook.Sign([]byte(input.Secret), input.Payload))

	resp, err := client.Do(req)
	if err != nil {
		return deliveryResult{}, errs.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return deliveryResult{}, errs.Wrap(err, "read webhook response")
	}
	return deliveryResult{DeliveryID: deliveryID, StatusCode: resp.StatusCode, Body: body}, nil
}
