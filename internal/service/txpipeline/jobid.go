package txpipeline

import (
	"errors"
	"math/big"
	"strings"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

// ErrJobIDUnresolved is returned when a confirmed createJob call carries no
// escrow log from which the job id can be read.
var ErrJobIDUnresolved = errors.New("job id not found in receipt logs")

// ExtractJobID reads the new job id from the first escrow-contract log whose
// data parses as a hex integer. The error carries the unexpected code.
func ExtractJobID(status *core.CallStatus, escrowAddress string) (int64, error) {
	for _, l := range status.LogsFrom(escrowAddress) {
		if id, ok := parseHexInt(l.Data); ok {
			return id, nil
		}
	}
	return 0, apperrors.Wrapf(ErrJobIDUnresolved, apperrors.ErrCodeUnexpected,
		"no job id log from %s", escrowAddress)
}

func parseHexInt(data string) (int64, bool) {
	s := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(data), "0x"), "0X")
	if s == "" {
		return 0, false
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok || !n.IsInt64() {
		return 0, false
	}
	return n.Int64(), true
}
