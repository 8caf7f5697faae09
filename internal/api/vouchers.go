package api

import (
	"context"

	"github.com/Veraticus/yesan/internal/model"
)

// Anomalies fetches every voucher the detection engine flagged.
func (c *Client) Anomalies(ctx context.Context) ([]model.AnomalyResult, error) {
	var results []model.AnomalyResult
	if err := c.getJSON(ctx, "/api/vouchers/anomalies", &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SendAlert asks the backend to e-mail an alert for one flagged voucher.
func (c *Client) SendAlert(ctx context.Context, result model.AnomalyResult) error {
	return c.postJSON(ctx, c.baseURL, "/api/vouchers/send-alert", model.NewAlertRequest(result), nil)
}
