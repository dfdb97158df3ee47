package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/videofactory/internal/domain"
)

const jobColumns = `id, owner, original_name, status, progress, error_message,
	input_location, output_location, input_metadata, output_metadata,
	created_at, completed_at`

const upsertJob = `INSERT INTO jobs (` + jobColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	status = excluded.status,
	progress = excluded.progress,
	error_message = excluded.error_message,
	input_location = excluded.input_location,
	output_location = excluded.output_location,
	input_metadata = excluded.input_metadata,
	output_metadata = excluded.output_metadata,
	completed_at = excluded.completed_at`

const getJob = `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

const listJobsByOwner = `SELECT ` + jobColumns + ` FROM jobs WHERE owner = ? ORDER BY created_at DESC`

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type jobParams struct {
	ID             string
	Owner          string
	OriginalName   string
	Status         string
	Progress       int64
	ErrorMessage   string
	InputLocation  string
	OutputLocation string
	InputMetadata  sql.NullString
	OutputMetadata sql.NullString
	CreatedAt      string
	CompletedAt    sql.NullString
}

func paramsFromJob(j *domain.Job) (jobParams, error) {
	in, err := encodeMedia(j.InputMetadata)
	if err != nil {
		return jobParams{}, err
	}
	out, err := encodeMedia(j.OutputMetadata)
	if err != nil {
		return jobParams{}, err
	}
	p := jobParams{
		ID:             j.ID,
		Owner:          j.Owner,
		OriginalName:   j.OriginalName,
		Status:         string(j.Status),
		Progress:       int64(j.Progress),
		ErrorMessage:   j.Error,
		InputLocation:  j.Input.String(),
		OutputLocation: j.Output.String(),
		InputMetadata:  in,
		OutputMetadata: out,
		CreatedAt:      j.CreatedAt.UTC().Format(timeLayout),
	}
	if j.CompletedAt != nil {
		p.CompletedAt = sql.NullString{String: j.CompletedAt.UTC().Format(timeLayout), Valid: true}
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	var p jobParams
	err := row.Scan(
		&p.ID, &p.Owner, &p.OriginalName, &p.Status, &p.Progress, &p.ErrorMessage,
		&p.InputLocation, &p.OutputLocation, &p.InputMetadata, &p.OutputMetadata,
		&p.CreatedAt, &p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return jobFromParams(p)
}

func jobFromParams(p jobParams) (*domain.Job, error) {
	status, err := domain.ParseStatus(p.Status)
	if err != nil {
		return nil, err
	}
	input, err := domain.ParseLocation(p.InputLocation)
	if err != nil {
		return nil, err
	}
	output, err := domain.ParseLocation(p.OutputLocation)
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(timeLayout, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}

	job := &domain.Job{
		ID:           p.ID,
		Owner:        p.Owner,
		OriginalName: p.OriginalName,
		Status:       status,
		Progress:     int(p.Progress),
		Error:        p.ErrorMessage,
		Input:        input,
		Output:       output,
		CreatedAt:    created,
	}
	if p.CompletedAt.Valid {
		completed, err := time.Parse(timeLayout, p.CompletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("completed_at: %w", err)
		}
		job.CompletedAt = &completed
	}
	if job.InputMetadata, err = decodeMedia(p.InputMetadata); err != nil {
		return nil, err
	}
	if job.OutputMetadata, err = decodeMedia(p.OutputMetadata); err != nil {
		return nil, err
	}
	return job, nil
}

func encodeMedia(m *domain.MediaInfo) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeMedia(s sql.NullString) (*domain.MediaInfo, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m domain.MediaInfo
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, fmt.Errorf("decode media metadata: %w", err)
	}
	return &m, nil
}
