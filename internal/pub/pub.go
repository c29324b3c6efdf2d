package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"finance-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	FinanceEventsChannel = "finance_events"
)

// Event types carried on the stream
const (
	EventTransactionCompleted        = "transaction.completed"
	EventTransactionCancelled        = "transaction.cancelled"
	EventWithdrawalRequested         = "withdrawal.requested"
	EventWithdrawalCompleted         = "withdrawal.completed"
	EventWithdrawalFailed            = "withdrawal.failed"
	EventReconciliationDiscrepancies = "finance.reconciliation.discrepancies"
	EventRefundProcessed             = "finance.refund.processed"
	EventNegativeBalance             = "finance.wallet.negative_balance"
	EventClearanceReleased           = "finance.clearance.released"
)

// FinanceEventPublisher fans events out to the Redis channel for live
// consumers and the Kafka topic for durable downstream processing.
// Publishing is best-effort; a failed publish never fails the ledger write.
type FinanceEventPublisher struct {
	rdb         *redis.Client
	kafkaWriter *kafka.Writer
}

func NewFinanceEventPublisher(rdb *redis.Client, kafkaWriter *kafka.Writer) *FinanceEventPublisher {
	return &FinanceEventPublisher{rdb: rdb, kafkaWriter: kafkaWriter}
}

type FinanceEvent struct {
	EventType     string          `json:"event_type"`
	AgentID       string          `json:"agent_id,omitempty"`
	WalletID      string          `json:"wallet_id,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Platform      string          `json:"platform,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Currency      string          `json:"currency,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	Details       map[string]any  `json:"details,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Publish sends an event to Redis and Kafka
func (p *FinanceEventPublisher) Publish(ctx context.Context, event *FinanceEvent) error {
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.rdb != nil {
		if err := p.rdb.Publish(ctx, FinanceEventsChannel, payload).Err(); err != nil {
			log.Printf("[FinanceEvent] Redis publish failed for %s: %v", event.EventType, err)
		}
	}

	if p.kafkaWriter != nil {
		key := event.TransactionID
		if key == "" {
			key = event.WalletID
		}
		err := p.kafkaWriter.WriteMessages(ctx, kafka.Message{
			Key:   []byte(key),
			Value: payload,
			Time:  time.Now(),
		})
		if err != nil {
			log.Printf("[FinanceEvent] Kafka publish failed for %s: %v", event.EventType, err)
		}
	}

	log.Printf("[FinanceEvent] Published: %s agent=%s tx=%s", event.EventType, event.AgentID, event.TransactionID)

	return nil
}

// PublishTransactionCompleted publishes a pending earning release
func (p *FinanceEventPublisher) PublishTransactionCompleted(ctx context.Context, agentID, transactionID string, netAmount decimal.Decimal, currency string) error {
	return p.Publish(ctx, &FinanceEvent{
		EventType:     EventTransactionCompleted,
		AgentID:       agentID,
		TransactionID: transactionID,
		Amount:        netAmount,
		Currency:      currency,
	})
}

// PublishTransactionCancelled publishes a void
func (p *FinanceEventPublisher) PublishTransactionCancelled(ctx context.Context, agentID, transactionID, reason string) error {
	return p.Publish(ctx, &FinanceEvent{
		EventType:     EventTransactionCancelled,
		AgentID:       agentID,
		TransactionID: transactionID,
		ErrorMessage:  reason,
	})
}

// PublishWithdrawalRequested publishes a new withdrawal reservation
func (p *FinanceEventPublisher) PublishWithdrawalRequested(ctx context.Context, agentID, transactionID string, amount, fee decimal.Decimal, method string) error {
	return p.Publish(ctx, &FinanceEvent{
		EventType:     EventWithdrawalRequested,
		AgentID:       agentID,
		TransactionID: transactionID,
		Amount:        amount,
		Fee:           fee,
		Details:       map[string]any{"method": method},
	})
}

// PublishWithdrawalCompleted publishes a finalized withdrawal
func (p *FinanceEventPublisher) PublishWithdrawalCompleted(ctx context.Context, agentID, transactionID, reference string, netAmount decimal.Decimal) error {
	return p.Publish(ctx, &FinanceEvent{
		EventType:     EventWithdrawalCompleted,
		AgentID:       agentID,
		TransactionID: transactionID,
		Amount:        netAmount,
		Reference:     reference,
	})
}

// PublishWithdrawalFailed publishes a reversed withdrawal
func (p *FinanceEventPublisher) PublishWithdrawalFailed(ctx context.Context, agentID, transactionID string, amount decimal.Decimal, errorMsg string) error {
	return p.Publish(ctx, &FinanceEvent{
		EventType:     EventWithdrawalFailed,
		AgentID:       agentID,
		TransactionID: transactionID,
		Amount:        amount,
		ErrorMessage:  errorMsg,
	})
}

// PublishRefundProcessed publishes a completed refund
func (p *FinanceEventPublisher) PublishRefundProcessed(ctx context.Context, agentID, transactionID, jobID string, amount decimal.Decimal) error {
	return p.Publish(ctx, &FinanceEvent{
		EventType:     EventRefundProcessed,
		AgentID:       agentID,
		TransactionID: transactionID,
		Amount:        amount,
		Details:       map[string]any{"job_id": jobID},
	})
}

// PublishNegativeBalance alerts that a refund drove a wallet negative
func (p *FinanceEventPublisher) PublishNegativeBalance(ctx context.Context, agentID, walletID string, available decimal.Decimal) error {
	return p.Publish(ctx, &FinanceEvent{
		EventType: EventNegativeBalance,
		AgentID:   agentID,
		WalletID:  walletID,
		Amount:    available,
	})
}

// PublishReconciliationDiscrepancies surfaces mismatches for manual
// resolution. Details carry at most the first 10 discrepancies.
func (p *FinanceEventPublisher) PublishReconciliationDiscrepancies(ctx context.Context, result *domain.ReconciliationResult) error {
	details := result.Discrepancies
	if len(details) > 10 {
		details = details[:10]
	}
	return p.Publish(ctx, &FinanceEvent{
		EventType: EventReconciliationDiscrepancies,
		Platform:  result.Platform,
		Details: map[string]any{
			"processed":     result.Processed,
			"matched":       result.Matched,
			"discrepancies": len(result.Discrepancies),
			"samples":       details,
		},
	})
}

// PublishClearanceReleased publishes a clearance batch result
func (p *FinanceEventPublisher) PublishClearanceReleased(ctx context.Context, platform string, released int) error {
	return p.Publish(ctx, &FinanceEvent{
		EventType: EventClearanceReleased,
		Platform:  platform,
		Details:   map[string]any{"released": released},
	})
}
