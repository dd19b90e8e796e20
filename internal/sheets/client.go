package sheets

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sheetfit/sheetfit/internal/telemetry/metrics"
	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	sheetsv4 "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

// Client is the only gateway to the backing spreadsheet. All domain data
// (workout sheets, run log, profile, food and deficit logs) lives there;
// every read goes to the backend fresh, there is no caching layer on top.
type Client struct {
	service        *sheetsv4.Service
	spreadsheetID  string
	metricsManager *metrics.Manager
}

type NewClientParams struct {
	CredentialsJSON []byte
	SpreadsheetID   string
	HTTPClient      *http.Client
	MetricsManager  *metrics.Manager
}

func NewClient(ctx context.Context, params NewClientParams) (*Client, error) {
	if params.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id empty")
	}

	opts := []option.ClientOption{
		option.WithCredentialsJSON(params.CredentialsJSON),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	}
	if params.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(params.HTTPClient))
	}

	service, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets client: %w", err)
	}

	return &Client{
		service:        service,
		spreadsheetID:  params.SpreadsheetID,
		metricsManager: params.MetricsManager,
	}, nil
}

// Get reads a ranged block of cells. Rows are trimmed to their last non-empty
// cell, the way the backend reports them; missing trailing rows are absent.
func (c *Client) Get(ctx context.Context, readRange string) (_ [][]string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sheets.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("range", readRange))
	defer c.observeCall("get", time.Now())

	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets get %s: %w", readRange, err)
	}

	return cellsToStrings(resp.Values), nil
}

// Update overwrites the given cells verbatim. RAW input option so numeric
// looking strings are not reinterpreted as dates by the backend.
func (c *Client) Update(ctx context.Context, writeRange string, values [][]string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sheets.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("range", writeRange))
	defer c.observeCall("update", time.Now())

	_, err = c.service.Spreadsheets.Values.
		Update(c.spreadsheetID, writeRange, &sheetsv4.ValueRange{Values: stringsToCells(values)}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets update %s: %w", writeRange, err)
	}

	log.Tracef("sheets: updated range %s, %d rows", writeRange, len(values))
	return nil
}

// Append adds rows after the last populated row of the range's table.
func (c *Client) Append(ctx context.Context, appendRange string, values [][]string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sheets.append")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("range", appendRange))
	defer c.observeCall("append", time.Now())

	_, err = c.service.Spreadsheets.Values.
		Append(c.spreadsheetID, appendRange, &sheetsv4.ValueRange{Values: stringsToCells(values)}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets append %s: %w", appendRange, err)
	}

	log.Tracef("sheets: appended %d rows to %s", len(values), appendRange)
	return nil
}

// SheetTitles lists the titles of all sheets (tabs) in the spreadsheet.
func (c *Client) SheetTitles(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sheets.sheetTitles")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	defer c.observeCall("sheetTitles", time.Now())

	resp, err := c.service.Spreadsheets.
		Get(c.spreadsheetID).
		Fields("sheets(properties(title))").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets list titles: %w", err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (c *Client) observeCall(op string, begin time.Time) {
	if c.metricsManager == nil {
		return
	}
	c.metricsManager.HistSheetCallDuration.
		With(prometheus.Labels{"op": op}).
		Observe(time.Since(begin).Seconds())
}

func cellsToStrings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		rows = append(rows, cells)
	}
	return rows
}

func stringsToCells(values [][]string) [][]interface{} {
	rows := make([][]interface{}, 0, len(values))
	for _, row := range values {
		cells := make([]interface{}, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		rows = append(rows, cells)
	}
	return rows
}
