// Package mocks provides gomock implementations of the core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	relay := mocks.NewMockChainRelay(ctrl)
//	relay.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(core.Handle("h1"), nil)
package mocks

// MockChainRelay: Submit, Confirm
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=chain_relay_mock.go github.com/quocan1101-cloud/acp-hackathon/internal/core ChainRelay

// MockACPAPI: ListJobs, GetJob, GetMemo, SearchAgents, GetAgent, NotifyJobInitiated
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=acp_api_mock.go github.com/quocan1101-cloud/acp-hackathon/internal/core ACPAPI

// MockTransactionJournal: Record, ListByCall, Recent
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=transaction_journal_mock.go github.com/quocan1101-cloud/acp-hackathon/internal/core TransactionJournal
