// Package job holds the phase guards that gate every buyer, seller and
// evaluator action. Guards are pure: they inspect a job snapshot and either
// return the memo the action operates on or a precondition error.
package job

import (
	"strings"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

// RequireLatest returns the job's latest memo when it advances into phase.
func RequireLatest(j *model.Job, phase model.Phase) (*model.Memo, error) {
	return RequireLatestIn(j, phase)
}

// RequireLatestIn returns the job's latest memo when its next phase is one of
// phases.
func RequireLatestIn(j *model.Job, phases ...model.Phase) (*model.Memo, error) {
	memo := j.LatestMemo()
	if memo == nil {
		return nil, apperrors.Preconditionf("job %d has no memos", jobID(j))
	}
	for _, p := range phases {
		if memo.NextPhase == p {
			return memo, nil
		}
	}
	return nil, apperrors.Preconditionf(
		"job %d: latest memo %d advances to %s, want %s",
		j.ID, memo.ID, memo.NextPhase, phaseList(phases),
	)
}

// RequireAnyMemo returns the memo with the given id.
func RequireAnyMemo(j *model.Job, memoID int64) (*model.Memo, error) {
	memo := j.MemoByID(memoID)
	if memo == nil {
		return nil, apperrors.Preconditionf("job %d: memo %d not found", jobID(j), memoID)
	}
	return memo, nil
}

// RequireMemo returns the memo with the given id when it advances into phase
// and has the expected memo type.
func RequireMemo(j *model.Job, memoID int64, phase model.Phase, typ model.MemoType) (*model.Memo, error) {
	memo, err := RequireAnyMemo(j, memoID)
	if err != nil {
		return nil, err
	}
	if memo.NextPhase != phase {
		return nil, apperrors.Preconditionf(
			"job %d: memo %d advances to %s, want %s", j.ID, memo.ID, memo.NextPhase, phase,
		)
	}
	if memo.Type != typ {
		return nil, apperrors.Preconditionf(
			"job %d: memo %d is %s, want %s", j.ID, memo.ID, memo.Type, typ,
		)
	}
	return memo, nil
}

// RequirePayloadKind returns the memo's envelope when it decodes and carries
// kind. Plain or broken content is a precondition failure, not a decode
// failure: the action was pointed at the wrong memo.
func RequirePayloadKind(memo *model.Memo, kind payload.Kind) (*payload.Envelope, error) {
	if memo == nil {
		return nil, apperrors.Precondition("memo is required")
	}
	env, err := memo.Envelope()
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodePrecondition,
			"memo %d does not carry a %s payload", memo.ID, kind)
	}
	if env.Kind != kind {
		return nil, apperrors.Preconditionf("memo %d carries %s, want %s", memo.ID, env.Kind, kind)
	}
	return env, nil
}

// RequireMemoWithPayload combines RequireMemo and RequirePayloadKind.
func RequireMemoWithPayload(
	j *model.Job,
	memoID int64,
	phase model.Phase,
	typ model.MemoType,
	kind payload.Kind,
) (*model.Memo, *payload.Envelope, error) {
	memo, err := RequireMemo(j, memoID, phase, typ)
	if err != nil {
		return nil, nil, err
	}
	env, err := RequirePayloadKind(memo, kind)
	if err != nil {
		return nil, nil, err
	}
	return memo, env, nil
}

func jobID(j *model.Job) int64 {
	if j == nil {
		return 0
	}
	return j.ID
}

func phaseList(phases []model.Phase) string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.String()
	}
	return strings.Join(names, "|")
}
