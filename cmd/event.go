package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/freelance-payments/internal/core/events"
	"github.com/frahmantamala/freelance-payments/pkg/logger"
	"github.com/frahmantamala/freelance-payments/pkg/mq"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish sample payment events to check downstream consumers`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish-paid",
	Short: "Publish a sample payment.paid event",
	Long:  `Publish a payment.paid event through the event bus and, when messaging is configured, to the AMQP exchange`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishPaidEvent(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to publish event: %v\n", err)
			os.Exit(1)
		}
	},
}

var (
	samplePaymentID int64
	sampleJobID     int64
	sampleAppID     int64
	sampleOrderID   string
)

func publishPaidEvent(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := logger.Configure(os.Stdout, config.Observability.Logging.Format, config.Observability.Logging.Level)

	eventBus := events.NewEventBus(log, events.WithHandlerTimeout(config.Messaging.PublishTimeout))
	eventBus.Subscribe(events.EventTypePaymentPaid, events.LogHandler(log))

	if url := config.Messaging.AMQPURL; url != "" {
		publisher, err := mq.NewPublisher(url, config.Messaging.Exchange, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		eventBus.Subscribe(events.EventTypePaymentPaid, events.ForwardTo(publisher, log))
	}

	event := events.NewPaymentPaidEvent(events.PaymentPaid{
		PaymentID:        samplePaymentID,
		JobID:            sampleJobID,
		ApplicationID:    sampleAppID,
		GatewayOrderID:   sampleOrderID,
		GatewayPaymentID: fmt.Sprintf("pay_cli_%d", time.Now().Unix()),
		AmountMinor:      100,
		Currency:         config.Payment.Currency,
		Source:           events.SourceCLI,
	})

	log.Info("publishing sample event", "event_type", event.EventType(), "event_id", event.EventID())
	return eventBus.PublishSync(ctx, event)
}

func init() {
	publishEventCmd.Flags().Int64Var(&samplePaymentID, "payment-id", 1, "payment id carried by the event")
	publishEventCmd.Flags().Int64Var(&sampleJobID, "job-id", 1, "job id carried by the event")
	publishEventCmd.Flags().Int64Var(&sampleAppID, "application-id", 1, "application id carried by the event")
	publishEventCmd.Flags().StringVar(&sampleOrderID, "order-id", "order_cli_sample", "gateway order id carried by the event")

	eventCmd.AddCommand(publishEventCmd)
}
