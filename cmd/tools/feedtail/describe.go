package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/rediswatch/internal/alarm"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/utils"
)

// describe renders one feed message as a single line. Subjects are
// recognized by suffix so any subject prefix works.
func describe(subject string, data []byte) (string, error) {
	switch {
	case strings.HasSuffix(subject, utils.AlarmSubject):
		var a alarm.Alarm
		if err := json.Unmarshal(data, &a); err != nil {
			return "", fmt.Errorf("invalid alarm payload: %w", err)
		}
		line := fmt.Sprintf("%s ALARM %s", a.RaisedAt.Format(time.RFC3339), a.Message)
		if len(a.Context) > 0 {
			ctx, _ := json.Marshal(a.Context)
			line += " " + string(ctx)
		}
		return line, nil

	case strings.HasSuffix(subject, utils.BalanceRequestSubject):
		var req models.BalanceRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return "", fmt.Errorf("invalid balance request payload: %w", err)
		}
		return fmt.Sprintf("%s REBALANCE %s:%d slots=%d plan=%s",
			req.RequestedAt.Format(time.RFC3339), req.Host, req.Port,
			models.SlotCount(req.OwnedSlots), planKey(req.Plan)), nil

	default:
		return fmt.Sprintf("%s %s", subject, data), nil
	}
}

func planKey(p *models.Plan) string {
	if p == nil {
		return "-"
	}
	return p.Key
}
