// Package mocks provides gomock implementations of the store interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockStore := mocks.NewMockJobStore(ctrl)
//	mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_store_mock.go github.com/baxromumarov/jobfeed/internal/store JobStore
