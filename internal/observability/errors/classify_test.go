package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/principal-auth/internal/domain/auth"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
		{name: "wrapped deadline", err: fmt.Errorf("lookup: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: fmt.Errorf("insert: %w", context.Canceled), want: "canceled"},
		{name: "pointer type", err: fmt.Errorf("dial: %w", &net.OpError{Op: "dial"}), want: "net_operror"},
		{
			name: "postgres",
			err:  fmt.Errorf("create credential: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation}),
			want: "pg_23505",
		},
		{
			name: "joined takes first",
			err:  goerrors.Join(&net.OpError{Op: "write"}, goerrors.New("compensating delete failed")),
			want: "net_operror",
		},
		{
			name: "domain orphan",
			err:  &domainauth.OrphanedPrincipalError{PrincipalID: "1"},
			want: "auth_orphanedprincipalerror",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
