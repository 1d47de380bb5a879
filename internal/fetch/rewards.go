package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/model"
	"github.com/yourorg/staking-dashboard/internal/otel"
	"github.com/yourorg/staking-dashboard/internal/validation"
)

// maxErrorBody caps how much of a failing response body is carried in the
// error for diagnostics.
const maxErrorBody = 2048

// Rewards fetches the full reward history for one wallet from
// GET {base}/user/rewards/{wallet}. The returned response is validated; a
// shape violation yields a parsing error, a non-2xx status an http error
// carrying status and body, everything else (including cancellation) a
// network error.
func (c *Client) Rewards(ctx context.Context, wallet string) (*model.WalletResponse, error) {
	const op = "fetch.Rewards"

	ctx, span := otel.Tracer().Start(ctx, "fetch.Rewards")
	span.SetAttributes(attribute.String("wallet", wallet))
	defer span.End()

	result, err := c.rewardsBreaker.Execute(func() (interface{}, error) {
		return c.fetchRewards(ctx, op, wallet)
	})
	if err != nil {
		otel.RecordError(ctx, err)
		fetchErrors.WithLabelValues("rewards", string(kindOrNetwork(err))).Inc()
		return nil, wrapBreakerErr(op, err)
	}
	return result.(*model.WalletResponse), nil
}

func (c *Client) fetchRewards(ctx context.Context, op, wallet string) (*model.WalletResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/rewards/"+wallet, nil)
	if err != nil {
		return nil, errs.New(errs.KindNetwork, op, err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.WithField("wallet", wallet).Debug("Fetching wallet rewards")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.New(errs.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errs.HTTP(op, resp.StatusCode, string(body))
	}

	var payload model.WalletResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errs.New(errs.KindParsing, op, err)
	}
	if err := validation.WalletResponse(&payload); err != nil {
		return nil, err
	}
	if payload.WalletAddress == "" {
		payload.WalletAddress = wallet
	}

	logrus.WithFields(logrus.Fields{
		"wallet":    wallet,
		"providers": len(payload.ProvidersFullRewardsData),
		"epoch":     payload.CurrentEpoch,
	}).Debug("Wallet rewards received")
	return &payload, nil
}

// wrapBreakerErr keeps classified errors intact and maps everything else,
// breaker rejections included, to network errors: an open circuit is a
// transport-level unavailability from the caller's point of view.
func wrapBreakerErr(op string, err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.New(errs.KindNetwork, op, err)
}

func kindOrNetwork(err error) errs.Kind {
	if k := errs.KindOf(err); k != "" {
		return k
	}
	return errs.KindNetwork
}
