// Package sheets is the Google Sheets row store. Row 1 of the worksheet is a
// header naming the image_url and caption columns; every other non-empty row
// is a content row.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mikequentel/sheetposter/internal/model"
	"github.com/mikequentel/sheetposter/internal/rowstore"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

type Config struct {
	CredentialsJSON string // service-account key
	SpreadsheetID   string // takes precedence over SpreadsheetName
	SpreadsheetName string
	Worksheet       string // empty: first sheet
}

type Store struct {
	cfg        Config
	clientOpts []option.ClientOption

	// httpClient authorizes requests; replaced in tests.
	httpClient func(ctx context.Context) (*http.Client, error)
}

var _ rowstore.Store = (*Store)(nil)

// New returns a store that authenticates on every call. Configuration
// problems surface from ListRows and AppendRow as *rowstore.ConfigError.
func New(cfg Config, opts ...option.ClientOption) *Store {
	s := &Store{cfg: cfg, clientOpts: opts}
	s.httpClient = s.serviceAccountClient
	return s
}

func (s *Store) serviceAccountClient(ctx context.Context) (*http.Client, error) {
	if strings.TrimSpace(s.cfg.CredentialsJSON) == "" {
		return nil, &rowstore.ConfigError{Reason: "GOOGLE_SHEETS_CREDENTIALS is empty"}
	}
	jwt, err := google.JWTConfigFromJSON([]byte(s.cfg.CredentialsJSON),
		sheets.SpreadsheetsScope, drive.DriveMetadataReadonlyScope)
	if err != nil {
		return nil, &rowstore.ConfigError{Reason: "parse service account credentials", Err: err}
	}
	return jwt.Client(ctx), nil
}

// ListRows reads the whole worksheet and maps it through the header row.
func (s *Store) ListRows(ctx context.Context) ([]model.ContentRow, error) {
	svc, id, ws, err := s.open(ctx, "list")
	if err != nil {
		return nil, err
	}

	resp, err := svc.Spreadsheets.Values.Get(id, quoteSheet(ws)).Context(ctx).Do()
	if err != nil {
		return nil, classify("list", err)
	}
	rows, err := parseRows(resp.Values)
	if err != nil {
		return nil, &rowstore.StoreError{Op: "list", Err: err}
	}
	log.Debug().Str("worksheet", ws).Int("rows", len(rows)).Msg("Rows listed")
	return rows, nil
}

// AppendRow adds one row after the last data row, placing the values under
// their header columns.
func (s *Store) AppendRow(ctx context.Context, imageURLs, caption string) error {
	svc, id, ws, err := s.open(ctx, "append")
	if err != nil {
		return err
	}

	head, err := svc.Spreadsheets.Values.Get(id, quoteSheet(ws)+"!1:1").Context(ctx).Do()
	if err != nil {
		return classify("append", err)
	}
	var header []any
	if len(head.Values) > 0 {
		header = head.Values[0]
	}

	vr := &sheets.ValueRange{Values: [][]any{orderForHeader(header, imageURLs, caption)}}
	_, err = svc.Spreadsheets.Values.Append(id, quoteSheet(ws), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify("append", err)
	}
	log.Info().Str("worksheet", ws).Msg("Row appended")
	return nil
}

// open authenticates and resolves the spreadsheet ID and worksheet title.
func (s *Store) open(ctx context.Context, op string) (*sheets.Service, string, string, error) {
	client, err := s.httpClient(ctx)
	if err != nil {
		return nil, "", "", err
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, s.clientOpts...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, "", "", &rowstore.StoreError{Op: op, Err: fmt.Errorf("sheets client: %w", err)}
	}

	id := s.cfg.SpreadsheetID
	if id == "" {
		if id, err = s.resolveByName(ctx, opts); err != nil {
			return nil, "", "", classify(op, err)
		}
	}

	ws := s.cfg.Worksheet
	if ws == "" {
		ss, err := svc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return nil, "", "", classify(op, err)
		}
		if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
			return nil, "", "", &rowstore.StoreError{Op: op, Err: fmt.Errorf("spreadsheet %s has no worksheets", id)}
		}
		ws = ss.Sheets[0].Properties.Title
	}
	return svc, id, ws, nil
}

// resolveByName finds a spreadsheet by exact title through Drive.
func (s *Store) resolveByName(ctx context.Context, opts []option.ClientOption) (string, error) {
	name := s.cfg.SpreadsheetName
	if name == "" {
		return "", &rowstore.ConfigError{Reason: "neither SHEET_ID nor SHEET_NAME is set"}
	}
	dsvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("drive client: %w", err)
	}
	list, err := dsvc.Files.List().
		Q(titleQuery(name)).
		Fields("files(id, name)").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("find spreadsheet %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found or not shared with the service account", name)
	}
	if len(list.Files) > 1 {
		log.Warn().Str("name", name).Int("matches", len(list.Files)).Msg("Several spreadsheets share this title, using the first")
	}
	return list.Files[0].Id, nil
}

// titleQuery builds a Drive search for an exact spreadsheet title.
func titleQuery(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	return fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escaped, spreadsheetMimeType)
}

// quoteSheet renders a worksheet title as an A1 sheet reference.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// parseRows maps raw worksheet values to content rows. Rows with neither
// column filled are skipped.
func parseRows(values [][]any) ([]model.ContentRow, error) {
	if len(values) == 0 {
		return nil, rowstore.ErrNoRows
	}
	imgCol, capCol := columnIndex(values[0])
	if imgCol < 0 || capCol < 0 {
		return nil, fmt.Errorf("header row must contain %q and %q", model.ColumnImageURL, model.ColumnCaption)
	}

	var out []model.ContentRow
	for i, row := range values[1:] {
		img := strings.TrimSpace(cell(row, imgCol))
		caption := strings.TrimSpace(cell(row, capCol))
		if img == "" && caption == "" {
			continue
		}
		out = append(out, model.ContentRow{
			Row:       i + 2,
			ImageURLs: model.SplitImageField(img),
			Caption:   caption,
		})
	}
	if len(out) == 0 {
		return nil, rowstore.ErrNoRows
	}
	return out, nil
}

func columnIndex(header []any) (imgCol, capCol int) {
	imgCol, capCol = -1, -1
	for i, h := range header {
		switch fmt.Sprint(h) {
		case model.ColumnImageURL:
			imgCol = i
		case model.ColumnCaption:
			capCol = i
		}
	}
	return imgCol, capCol
}

// orderForHeader lays the two values out under their header columns, or as
// [image_url, caption] when the header does not name both.
func orderForHeader(header []any, imageURLs, caption string) []any {
	imgCol, capCol := columnIndex(header)
	if imgCol < 0 || capCol < 0 {
		return []any{imageURLs, caption}
	}
	row := make([]any, max(imgCol, capCol)+1)
	for i := range row {
		row[i] = ""
	}
	row[imgCol] = imageURLs
	row[capCol] = caption
	return row
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return fmt.Sprint(row[i])
}

// classify turns token failures into config errors and everything else into
// store errors.
func classify(op string, err error) error {
	var cfgErr *rowstore.ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return &rowstore.ConfigError{Reason: "service account rejected", Err: err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return &rowstore.StoreError{Op: op, Err: fmt.Errorf("spreadsheet or worksheet not found: %w", err)}
	}
	return &rowstore.StoreError{Op: op, Err: err}
}
