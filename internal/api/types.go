package api

import (
	"context"

	"github.com/mikequentel/sheetposter/internal/usecase"
)

type PublishRunner interface {
	Publish(ctx context.Context) (usecase.PublishResult, error)
}

type IngestRunner interface {
	Ingest(ctx context.Context, in usecase.IngestInput) (usecase.IngestResult, error)
}

var (
	_ PublishRunner = (*usecase.PublishService)(nil)
	_ IngestRunner  = (*usecase.IngestService)(nil)
)

type Handler struct {
	publisher PublishRunner
	ingester  IngestRunner
	version   string
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
