package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// LTIOutcomeSubject is the NATS subject the LTI outcome relay listens on.
const LTIOutcomeSubject = "tally.lti.outcomes"

type ltiOutcomeEvent struct {
	AssessmentInstanceID uint      `json:"assessment_instance_id"`
	PushedAt             time.Time `json:"pushed_at"`
}

type natsLTIScorePusher struct {
	conn   *nats.Conn
	logger zerolog.Logger
	now    func() time.Time
}

// NewNATSLTIScorePusher publishes changed assessment instance scores for the
// LTI outcome relay. The relay owning the AGS protocol is a separate service;
// this side only announces that a score moved.
func NewNATSLTIScorePusher(conn *nats.Conn, logger zerolog.Logger) LTIScorePusher {
	return &natsLTIScorePusher{
		conn:   conn,
		logger: logger.With().Str("component", "lti_score_pusher").Logger(),
		now:    time.Now,
	}
}

func (p *natsLTIScorePusher) PushScore(ctx context.Context, assessmentInstanceID uint) error {
	if p.conn == nil {
		return nil
	}

	payload, err := json.Marshal(ltiOutcomeEvent{
		AssessmentInstanceID: assessmentInstanceID,
		PushedAt:             p.now(),
	})
	if err != nil {
		return err
	}

	if err := p.conn.Publish(LTIOutcomeSubject, payload); err != nil {
		return err
	}

	p.logger.Debug().Uint("assessment_instance_id", assessmentInstanceID).Msg("published LTI outcome event")
	return nil
}
