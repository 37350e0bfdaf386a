package errors

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error code", err: fmt.Errorf("pay: %w", apperrors.Precondition("wrong phase")), want: "precondition"},
		{name: "deadline", err: fmt.Errorf("confirm: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "innermost type", err: fmt.Errorf("dial: %w", &net.OpError{Op: "dial"}), want: "net_operror"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
