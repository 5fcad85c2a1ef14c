// Package notify delivers decision notifications to an outbound
// webhook. Delivery is fire-and-forget from the pipeline's point of
// view: failures are logged and surfaced per item, never retried
// synchronously, and never roll back the release that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/harborlight-fund/grantflow/internal/model"
)

// Decision is the applicant-facing notification payload for one
// released LOI decision.
type Decision struct {
	LOIID          string    `json:"loi_id"`
	OrganizationID string    `json:"organization_id"`
	CycleID        string    `json:"cycle_id"`
	ContactEmail   string    `json:"contact_email"`
	Status         string    `json:"status"`
	DecisionReason string    `json:"decision_reason,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	ReleasedAt     time.Time `json:"released_at"`
}

// Notifier sends a decision notification to the applicant channel.
type Notifier interface {
	NotifyDecision(ctx context.Context, d Decision) error
}

// Webhook posts decision notifications to a configured URL,
// rate-limited so a bulk release cannot flood the receiving service.
type Webhook struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhook creates a Webhook notifier. perSecond bounds outbound
// request rate; zero or negative means unlimited.
func NewWebhook(url string, perSecond float64) *Webhook {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// NotifyDecision posts one decision to the webhook URL. An empty URL
// disables delivery silently.
func (w *Webhook) NotifyDecision(ctx context.Context, d Decision) error {
	if w.url == "" {
		return nil
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notify: rate limit wait")
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "notify: marshal decision")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	zap.L().Info("notify: decision delivered",
		zap.String("loi_id", d.LOIID),
		zap.String("status", d.Status),
	)
	return nil
}

// DecisionFromLOI builds the notification payload for a released LOI.
func DecisionFromLOI(loi *model.LOI) Decision {
	d := Decision{
		LOIID:          loi.ID,
		OrganizationID: loi.OrganizationID,
		CycleID:        loi.CycleID,
		ContactEmail:   loi.ContactEmail,
		Status:         string(loi.Status),
		DecisionReason: loi.DecisionReason,
		Summary:        loi.AISummary,
	}
	if loi.ReleasedAt != nil {
		d.ReleasedAt = *loi.ReleasedAt
	}
	return d
}
