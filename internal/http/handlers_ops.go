package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/dispatch"
)

// StatsSource exposes dispatcher counters.
type StatsSource interface {
	Stats() dispatch.Stats
}

// JobFetcher loads a fresh job snapshot.
type JobFetcher interface {
	GetJob(ctx context.Context, id int64) (*service.Job, error)
}

// JournalReader lists recent transaction attempts.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]*model.TxAttempt, error)
}

// OpsHandlers serves the read-only operator API.
type OpsHandlers struct {
	Stats   StatsSource
	Jobs    JobFetcher
	Journal JournalReader
	Logger  *slog.Logger
}

func (h *OpsHandlers) dispatchStats(w http.ResponseWriter, _ *http.Request) {
	if h.Stats == nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "unavailable", Err: errors.New("dispatcher not running")})
		return
	}
	WriteJSON(w, http.StatusOK, h.Stats.Stats())
}

// JobView is the operator view of one job.
type JobView struct {
	ID                 int64         `json:"id"`
	Phase              string        `json:"phase"`
	Price              float64       `json:"price"`
	Client             string        `json:"client_address"`
	Provider           string        `json:"provider_address"`
	Evaluator          string        `json:"evaluator_address"`
	ServiceName        string        `json:"service_name,omitempty"`
	ServiceRequirement any           `json:"service_requirement,omitempty"`
	Deliverable        string        `json:"deliverable,omitempty"`
	LatestMemo         *model.Memo   `json:"latest_memo,omitempty"`
	MemoToSign         *int64        `json:"memo_to_sign,omitempty"`
	Memos              []*model.Memo `json:"memos"`
}

func newJobView(j *model.Job) JobView {
	v := JobView{
		ID:                 j.ID,
		Phase:              j.Phase.String(),
		Price:              j.Price,
		Client:             j.ClientAddress,
		Provider:           j.ProviderAddress,
		Evaluator:          j.EvaluatorAddress,
		ServiceName:        j.ServiceName(),
		ServiceRequirement: j.ServiceRequirement(),
		LatestMemo:         j.LatestMemo(),
		MemoToSign:         j.MemoToSign,
		Memos:              j.Memos,
	}
	if d, ok := j.Deliverable(); ok {
		v.Deliverable = d
	}
	if v.Memos == nil {
		v.Memos = []*model.Memo{}
	}
	return v
}

func (h *OpsHandlers) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: errors.New("job id must be a positive integer")})
		return
	}
	job, err := h.Jobs.GetJob(r.Context(), id)
	if err != nil {
		h.logFailure(r, "get job", err)
		WriteAppError(w, err)
		return
	}
	if job == nil || job.Job == nil {
		WriteAppError(w, apperrors.NotFoundf("job %d not found", id))
		return
	}
	WriteJSON(w, http.StatusOK, newJobView(job.Snapshot()))
}

func (h *OpsHandlers) recentTransactions(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "unavailable", Err: errors.New("transaction journal not configured")})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_limit", Err: errors.New("limit must be a non-negative integer")})
			return
		}
		limit = n
	}
	rows, err := h.Journal.Recent(r.Context(), limit)
	if err != nil {
		h.logFailure(r, "recent transactions", err)
		WriteAppError(w, err)
		return
	}
	if rows == nil {
		rows = []*model.TxAttempt{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"attempts": rows})
}

func (h *OpsHandlers) logFailure(r *http.Request, op string, err error) {
	if h.Logger == nil || apperrors.IsNotFound(err) {
		return
	}
	h.Logger.WarnContext(r.Context(), op+" failed", "error", err)
}
