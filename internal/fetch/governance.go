package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/model"
	"github.com/yourorg/staking-dashboard/internal/otel"
	"github.com/yourorg/staking-dashboard/internal/validation"
)

// GovernanceVotes fetches the governance vote-power distribution from
// GET {base}/scripts/governance-votes. Error classification matches
// Rewards.
func (c *Client) GovernanceVotes(ctx context.Context) (*model.GovernanceVotes, error) {
	const op = "fetch.GovernanceVotes"

	ctx, span := otel.Tracer().Start(ctx, "fetch.GovernanceVotes")
	defer span.End()

	result, err := c.governanceBreaker.Execute(func() (interface{}, error) {
		return c.fetchGovernance(ctx, op)
	})
	if err != nil {
		otel.RecordError(ctx, err)
		fetchErrors.WithLabelValues("governance", string(kindOrNetwork(err))).Inc()
		return nil, wrapBreakerErr(op, err)
	}
	return result.(*model.GovernanceVotes), nil
}

func (c *Client) fetchGovernance(ctx context.Context, op string) (*model.GovernanceVotes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scripts/governance-votes", nil)
	if err != nil {
		return nil, errs.New(errs.KindNetwork, op, err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.Debug("Fetching governance votes")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.New(errs.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errs.HTTP(op, resp.StatusCode, string(body))
	}

	var payload model.GovernanceVotes
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errs.New(errs.KindParsing, op, err)
	}
	if err := validation.GovernanceVotes(&payload); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"yesVoters": len(payload.Yes),
		"noVoters":  len(payload.No),
	}).Debug("Governance votes received")
	return &payload, nil
}
