// Package voting records reviewer ballots on applications and tallies
// them against the reviewer roster. Ballots are advisory input to the
// decision; recording one never triggers a status transition.
package voting

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborlight-fund/grantflow/internal/model"
	"github.com/harborlight-fund/grantflow/internal/store"
)

type Service struct {
	store store.Store
}

func New(st store.Store) *Service {
	return &Service{store: st}
}

// CastVote upserts the reviewer's ballot on an application. A reviewer
// may change their vote at any time before the application is decided;
// the row converges to the last write.
func (s *Service) CastVote(ctx context.Context, applicationID string, reviewer model.Reviewer, choice model.VoteChoice, reasoning string) (*model.Vote, error) {
	if strings.TrimSpace(applicationID) == "" {
		return nil, &model.ValidationError{Field: "application_id", Reason: "must not be blank"}
	}
	if strings.TrimSpace(reviewer.ID) == "" {
		return nil, &model.ValidationError{Field: "reviewer_id", Reason: "must not be blank"}
	}
	if !choice.Valid() {
		return nil, &model.ValidationError{Field: "vote", Reason: "must be approve, decline, or abstain"}
	}

	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status.Terminal() {
		return nil, &model.TerminalStateError{Entity: "application", ID: app.ID, Status: string(app.Status)}
	}

	v := &model.Vote{
		ApplicationID: applicationID,
		ReviewerID:    reviewer.ID,
		ReviewerName:  reviewer.Name,
		Choice:        choice,
		Reasoning:     strings.TrimSpace(reasoning),
	}
	if err := s.store.UpsertVote(ctx, v); err != nil {
		return nil, eris.Wrap(err, "voting: cast vote")
	}

	zap.L().Info("vote recorded",
		zap.String("application_id", applicationID),
		zap.String("reviewer_id", reviewer.ID),
		zap.String("choice", string(choice)))
	return v, nil
}

// ReviewerTally is one roster entry in a tally: the reviewer and either
// their current ballot or a pending marker.
type ReviewerTally struct {
	ReviewerID   string           `json:"reviewer_id"`
	ReviewerName string           `json:"reviewer_name"`
	Voted        bool             `json:"voted"`
	Choice       model.VoteChoice `json:"choice,omitempty"`
	Reasoning    string           `json:"reasoning,omitempty"`
}

// Tally is the aggregated voting state of one application.
type Tally struct {
	ApplicationID string          `json:"application_id"`
	Approve       int             `json:"approve"`
	Decline       int             `json:"decline"`
	Abstain       int             `json:"abstain"`
	Pending       int             `json:"pending"`
	Reviewers     []ReviewerTally `json:"reviewers"`
}

// Tally recomputes the vote counts for an application from stored
// ballots. The roster is supplied by the caller; reviewers on the
// roster who have not voted appear as pending rather than being
// dropped. Votes from reviewers no longer on the roster still count
// and are appended after the roster entries.
func (s *Service) Tally(ctx context.Context, applicationID string, roster []model.Reviewer) (*Tally, error) {
	votes, err := s.store.ListVotes(ctx, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "voting: tally")
	}

	byReviewer := make(map[string]model.Vote, len(votes))
	for _, v := range votes {
		byReviewer[v.ReviewerID] = v
	}

	t := &Tally{ApplicationID: applicationID}
	seen := make(map[string]bool, len(roster))
	for _, r := range roster {
		seen[r.ID] = true
		entry := ReviewerTally{ReviewerID: r.ID, ReviewerName: r.Name}
		if v, ok := byReviewer[r.ID]; ok {
			entry.Voted = true
			entry.Choice = v.Choice
			entry.Reasoning = v.Reasoning
		}
		t.add(entry)
	}
	for _, v := range votes {
		if seen[v.ReviewerID] {
			continue
		}
		t.add(ReviewerTally{
			ReviewerID:   v.ReviewerID,
			ReviewerName: v.ReviewerName,
			Voted:        true,
			Choice:       v.Choice,
			Reasoning:    v.Reasoning,
		})
	}
	return t, nil
}

func (t *Tally) add(entry ReviewerTally) {
	t.Reviewers = append(t.Reviewers, entry)
	if !entry.Voted {
		t.Pending++
		return
	}
	switch entry.Choice {
	case model.VoteApprove:
		t.Approve++
	case model.VoteDecline:
		t.Decline++
	case model.VoteAbstain:
		t.Abstain++
	}
}
