package handlers_test

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/adapters/nibo"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/domain/matcher"
)

// setChiURLParam injects a chi URL parameter into the request context.
func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

// fakeNibo implements the handler-facing Nibo interfaces.
type fakeNibo struct {
	uploadResult *nibo.UploadResult
	uploadErr    error
	uploadedName string
	uploadedData []byte

	schedules []matcher.Schedule
	searchErr error
	gotParams nibo.SearchParams

	attachErr   error
	attachedIDs []string // schedule ids passed to AttachFiles
}

func (f *fakeNibo) UploadFile(_ context.Context, name string, data []byte, _ string) (*nibo.UploadResult, error) {
	f.uploadedName = name
	f.uploadedData = data
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.uploadResult != nil {
		return f.uploadResult, nil
	}
	return &nibo.UploadResult{FileID: "file-1", Name: name, Size: int64(len(data))}, nil
}

func (f *fakeNibo) SearchSchedules(_ context.Context, params nibo.SearchParams) ([]matcher.Schedule, error) {
	f.gotParams = params
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.schedules, nil
}

func (f *fakeNibo) AttachFiles(_ context.Context, _ nibo.Kind, scheduleID string, _ []string) error {
	f.attachedIDs = append(f.attachedIDs, scheduleID)
	return f.attachErr
}
