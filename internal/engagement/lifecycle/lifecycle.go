// Package lifecycle implements the engagement state machine:
// in_progress <-> paused -> completed | cancelled.
//
// Every operation receives the engagement and the current time, and either
// applies the transition in full or returns an error leaving the engagement
// untouched. Persisting the result is the caller's job.
package lifecycle

import (
	"fmt"
	"time"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/gartstein/consulting/internal/engagement/policy"
	"github.com/gartstein/consulting/internal/pkg/utils"
)

// Action names a lifecycle operation.
type Action string

const (
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionFinalize Action = "finalize"
	ActionCancel   Action = "cancel"
)

// Transition defines a valid state change: an action moves an engagement
// from Src to Dst.
type Transition struct {
	Action Action
	Src    models.Status
	Dst    models.Status
}

// Transitions lists every valid state change.
var Transitions = []Transition{
	{Action: ActionPause, Src: models.StatusInProgress, Dst: models.StatusPaused},
	{Action: ActionResume, Src: models.StatusPaused, Dst: models.StatusInProgress},
	{Action: ActionFinalize, Src: models.StatusInProgress, Dst: models.StatusCompleted},
	{Action: ActionFinalize, Src: models.StatusPaused, Dst: models.StatusCompleted},
	{Action: ActionCancel, Src: models.StatusInProgress, Dst: models.StatusCancelled},
	{Action: ActionCancel, Src: models.StatusPaused, Dst: models.StatusCancelled},
}

// Target returns the destination status of action from src.
func Target(action Action, src models.Status) (models.Status, error) {
	for _, t := range Transitions {
		if t.Action == action && t.Src == src {
			return t.Dst, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s engagement in status %s", e.ErrInvalidTransition, action, src)
}

// Pause opens a pause window.
func Pause(en *models.Engagement, now time.Time) error {
	dst, err := Target(ActionPause, en.Status)
	if err != nil {
		return err
	}
	en.Status = dst
	en.PauseStartedAt = utils.Ptr(now)
	en.UpdatedAt = now
	return nil
}

// Resume closes the pause window and adds its whole days to PausedDaysTotal.
func Resume(en *models.Engagement, now time.Time) error {
	dst, err := Target(ActionResume, en.Status)
	if err != nil {
		return err
	}
	closePause(en, now)
	en.Status = dst
	en.UpdatedAt = now
	return nil
}

// Cancel terminates the engagement. An open pause is discarded without
// being accumulated and no commission is computed.
func Cancel(en *models.Engagement, now time.Time) error {
	dst, err := Target(ActionCancel, en.Status)
	if err != nil {
		return err
	}
	en.Status = dst
	en.PauseStartedAt = nil
	en.CancelledAt = utils.Ptr(now)
	en.UpdatedAt = now
	return nil
}

// FinalizeInput carries what the user supplies when closing an engagement.
type FinalizeInput struct {
	Rating             int
	SignatureConfirmed bool
}

// Finalizer completes engagements using a deadline policy and a commission
// calculator.
type Finalizer struct {
	Deadlines  policy.DeadlinePolicy
	Commission *policy.Calculator
}

// Finalize moves the engagement to completed. A paused engagement is resumed
// first so that its effective duration is fixed before the deadline and
// commission are computed.
func (f Finalizer) Finalize(en *models.Engagement, in FinalizeInput, now time.Time) error {
	dst, err := Target(ActionFinalize, en.Status)
	if err != nil {
		return err
	}
	if err := policy.ValidateRating(in.Rating); err != nil {
		return err
	}

	next := en.Clone()
	if next.Status == models.StatusPaused {
		closePause(next, now)
	}
	next.DeadlineMet = f.Deadlines.DeadlineMet(next)

	commission, err := f.Commission.Calculate(next.Value, in.Rating, next.DeadlineMet)
	if err != nil {
		return err
	}

	next.Status = dst
	next.Rating = in.Rating
	next.ClosingSignatureConfirmed = in.SignatureConfirmed
	next.CommissionPercent = commission.Percent
	next.CommissionAmount = commission.Amount
	next.FinalizedAt = utils.Ptr(now)
	next.PauseStartedAt = nil
	next.UpdatedAt = now

	*en = *next
	return nil
}

func closePause(en *models.Engagement, now time.Time) {
	if en.PauseStartedAt != nil {
		en.PausedDaysTotal += models.DaysBetween(*en.PauseStartedAt, now)
	}
	en.PauseStartedAt = nil
}
