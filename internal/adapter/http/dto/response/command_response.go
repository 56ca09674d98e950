package response

import (
	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/pkg"
)

// CommandResponse is the envelope returned by every write endpoint.
type CommandResponse struct {
	OK        bool   `json:"ok"`
	Entity    any    `json:"entity,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

func Success(entity any) CommandResponse {
	return CommandResponse{OK: true, Entity: entity}
}

func Failure(appErr *pkg.AppError) CommandResponse {
	return CommandResponse{OK: false, ErrorKind: appErr.Code, Message: appErr.Message}
}

// JobResponse is a job plus the price the customer owes including approved extras.
type JobResponse struct {
	entities.Job
	TotalPrice float64 `json:"total_price"`
}

func FromJob(j entities.Job) JobResponse {
	return JobResponse{Job: j, TotalPrice: j.Price + j.AdditionalWorkTotal}
}

func FromJobs(jobs []entities.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, FromJob(j))
	}
	return out
}
