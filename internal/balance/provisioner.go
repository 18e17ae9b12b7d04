package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/queue"
	"github.com/soltixdb/rediswatch/internal/utils"
)

// QueueProvisioner publishes rebalance requests on <prefix>.balance.request.
// Publishing is fire-and-forget: the consumer deduplicates.
type QueueProvisioner struct {
	publisher queue.Publisher
	subject   string
	logger    *logging.Logger
	now       func() time.Time
}

// NewQueueProvisioner creates a provisioner publishing through publisher
func NewQueueProvisioner(publisher queue.Publisher, subjectPrefix string, logger *logging.Logger) *QueueProvisioner {
	return &QueueProvisioner{
		publisher: publisher,
		subject:   utils.Subject(subjectPrefix, utils.BalanceRequestSubject),
		logger:    logger.Component("provisioner"),
		now:       time.Now,
	}
}

// RequestRebalance publishes a BalanceRequest for host:port
func (p *QueueProvisioner) RequestRebalance(ctx context.Context, host string, port int, plan *models.Plan, ownedSlots []models.SlotRange) error {
	req := models.BalanceRequest{
		ID:          uuid.New().String(),
		Host:        host,
		Port:        port,
		OwnedSlots:  ownedSlots,
		Plan:        plan,
		RequestedAt: p.now().UTC(),
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal balance request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	if err := p.publisher.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish balance request: %w", err)
	}

	p.logger.Info("Rebalance requested",
		"request_id", req.ID,
		"host", req.Host,
		"port", req.Port,
		"slots", models.SlotCount(req.OwnedSlots))
	return nil
}

// Subject returns the subject requests are published on
func (p *QueueProvisioner) Subject() string {
	return p.subject
}
