package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/jointbuy-backend/internal/platform/dbctx"
)

func TestInjectedTxRunnerCounters(t *testing.T) {
	bodyErr := errors.New("TOO MUCH VOLUME")
	commitErr := errors.New("database is locked")
	beginErr := errors.New("too many connections")

	cases := []struct {
		name                      string
		runner                    *InjectedTxRunner
		body                      error
		want                      error
		ran                       bool
		begins, commits, rollback int
	}{
		{name: "commit", runner: &InjectedTxRunner{}, ran: true, begins: 1, commits: 1},
		{name: "body error", runner: &InjectedTxRunner{}, body: bodyErr, want: bodyErr, ran: true, begins: 1, rollback: 1},
		{name: "commit failure", runner: &InjectedTxRunner{FailCommit: commitErr}, want: commitErr, ran: true, begins: 1, rollback: 1},
		{name: "begin failure", runner: &InjectedTxRunner{FailBegin: beginErr}, want: beginErr, begins: 1},
		{name: "before body", runner: &InjectedTxRunner{FailBeforeBody: beginErr}, want: beginErr, begins: 1, rollback: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ran := false
			err := tc.runner.InTx(context.Background(), func(dbc dbctx.Context) error {
				ran = true
				if dbc.Tx != nil {
					t.Fatalf("injected runner must not open a transaction")
				}
				return tc.body
			})
			if !errors.Is(err, tc.want) || (tc.want == nil && err != nil) {
				t.Fatalf("err: want=%v got=%v", tc.want, err)
			}
			if ran != tc.ran {
				t.Fatalf("body ran: want=%v got=%v", tc.ran, ran)
			}
			r := tc.runner
			if r.BeginCalls != tc.begins || r.CommitCalls != tc.commits || r.RollbackCalls != tc.rollback {
				t.Fatalf("counters begin=%d commit=%d rollback=%d", r.BeginCalls, r.CommitCalls, r.RollbackCalls)
			}
		})
	}
}
