package workout

import (
	"context"
	"fmt"
	"strings"

	"github.com/sheetfit/sheetfit/internal/sheets"
	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type sheetsAPI interface {
	Get(ctx context.Context, readRange string) ([][]string, error)
	Update(ctx context.Context, writeRange string, values [][]string) error
	SheetTitles(ctx context.Context) ([]string, error)
}

// Definition is one workout sheet: exercise names from column A and the
// session matrix from column B onwards (row 1 holds session labels).
type Definition struct {
	Workouts    []string   `json:"workouts"`
	SessionData [][]string `json:"sessionData"`
}

type Service struct {
	sheets sheetsAPI
}

func NewService(sheetsClient sheetsAPI) *Service {
	return &Service{
		sheets: sheetsClient,
	}
}

// SheetNames lists all sheet titles in the spreadsheet.
func (s *Service) SheetNames(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.sheetNames")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.sheets.SheetTitles(ctx)
}

// SheetsByCategory filters sheet titles by a case-insensitive substring
// match against the category keyword (e.g. "push", "pull", "leg").
func (s *Service) SheetsByCategory(ctx context.Context, category string) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.sheetsByCategory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("category", category))

	titles, err := s.sheets.SheetTitles(ctx)
	if err != nil {
		return nil, err
	}

	keyword := strings.ToLower(category)
	var matched []string
	for _, title := range titles {
		if strings.Contains(strings.ToLower(title), keyword) {
			matched = append(matched, title)
		}
	}
	return matched, nil
}

// Workouts reads a workout sheet's exercise names and full session matrix.
func (s *Service) Workouts(ctx context.Context, sheetName string) (_ *Definition, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.workouts")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("sheet", sheetName))

	nameRows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!A2:A100", sheetName))
	if err != nil {
		return nil, fmt.Errorf("get exercise names: %w", err)
	}

	var workouts []string
	for _, row := range nameRows {
		if len(row) > 0 && row[0] != "" {
			workouts = append(workouts, row[0])
		}
	}

	sessionData, err := s.sheets.Get(ctx, fmt.Sprintf("%s!B1:ZZ100", sheetName))
	if err != nil {
		return nil, fmt.Errorf("get session data: %w", err)
	}

	return &Definition{
		Workouts:    workouts,
		SessionData: sessionData,
	}, nil
}

// SaveSession writes one session column: the session label into row 1 and the
// encoded records into the rows below it, in exercise order. Column
// resolution: an explicit existingColumn wins (the caller is mid-session and
// already owns it), then a row-1 label match (resuming a session), then the
// first unused column after the last populated header. Returns the resolved
// column so callers can save one exercise at a time without clobbering the
// rest of the session.
//
// Note: the find-free-column read and the write are two separate backend
// calls; concurrent saves against the same sheet can race. Accepted for a
// single-user tool.
func (s *Service) SaveSession(
	ctx context.Context,
	sheetName, sessionName string,
	records []string,
	existingColumn string,
) (column string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.saveSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("sheet", sheetName),
		attribute.String("session", sessionName),
	)

	column = existingColumn
	if column == "" {
		headerRows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!B1:ZZ1", sheetName))
		if err != nil {
			return "", fmt.Errorf("get session headers: %w", err)
		}
		var headers []string
		if len(headerRows) > 0 {
			headers = headerRows[0]
		}

		for i, header := range headers {
			if header == sessionName {
				// session already started under this label, reuse its column
				column = sheets.ColumnName(i + 1)
				break
			}
		}
		if column == "" {
			column = sheets.ColumnName(len(headers) + 1)
		}
	}

	values := make([][]string, 0, len(records)+1)
	values = append(values, []string{sessionName})
	for _, record := range records {
		values = append(values, []string{record})
	}

	writeRange := fmt.Sprintf("%s!%s1:%s%d", sheetName, column, column, len(values))
	if err := s.sheets.Update(ctx, writeRange, values); err != nil {
		return "", fmt.Errorf("write session column: %w", err)
	}

	log.Debugf("workout: session [%s] saved to %s column %s (%d records)",
		sessionName, sheetName, column, len(records))

	return column, nil
}
