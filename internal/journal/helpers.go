package journal

import (
	"database/sql"
	"fmt"
	"time"
)

const eventColumns = "run_id, sample, stage, ordinal, outcome, output_path, log_path, exit_code, duration_ms, recorded_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		configPath  sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
		status      string
		message     sql.NullString
	)
	if err := scanner.Scan(&run.ID, &configPath, &startedRaw, &finishedRaw, &status, &message); err != nil {
		return nil, err
	}
	run.ConfigPath = configPath.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.Status = RunStatus(status)
	run.ErrorMessage = message.String
	return &run, nil
}

func collectEvents(rows *sql.Rows) ([]StageEvent, error) {
	var events []StageEvent
	for rows.Next() {
		var (
			ev          StageEvent
			outputPath  sql.NullString
			logPath     sql.NullString
			durationMS  int64
			recordedRaw string
		)
		if err := rows.Scan(
			&ev.RunID,
			&ev.Sample,
			&ev.Stage,
			&ev.Ordinal,
			&ev.Outcome,
			&outputPath,
			&logPath,
			&ev.ExitCode,
			&durationMS,
			&recordedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		ev.OutputPath = outputPath.String
		ev.LogPath = logPath.String
		ev.Duration = time.Duration(durationMS) * time.Millisecond
		ev.RecordedAt = parseTime(recordedRaw)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage events: %w", err)
	}
	return events, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
