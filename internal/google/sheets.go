// Package google mirrors the loads table into a Google spreadsheet for the
// operations team. The sheet is a projection, never a source of truth.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"loadboard/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Load rows occupy columns A..N on the Loads sheet.
const loadsRange = "Loads"

var errRowNotFound = errors.New("load row not found")

type SheetsService struct {
	service      *sheets.Service
	loadsSheetID string
	rowCache     map[int64]int
	cacheMu      sync.RWMutex
}

// NewSheetsService builds a service-account client and warms the row cache
// in the background.
func NewSheetsService(credentialsFile, loadsSheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	service := &SheetsService{
		service:      srv,
		loadsSheetID: loadsSheetID,
		rowCache:     make(map[int64]int),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		service.WarmUpCache(ctx)
	}()

	return service, nil
}

// TestConnection reads one cell to verify access to the spreadsheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.loadsSheetID, loadsRange+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail returns the client_email to share the sheet with.
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// WarmUpCache rebuilds the load-id to row-index map from column A.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.loadsSheetID, loadsRange+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		var id int64
		switch v := row[0].(type) {
		case float64:
			id = int64(v)
		case string:
			fmt.Sscanf(v, "%d", &id)
		}
		if id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// AppendLoad adds a new load row.
func (s *SheetsService) AppendLoad(ctx context.Context, load *models.Load) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{loadRowValues(load)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.loadsSheetID, loadsRange+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	return err
}

// UpsertLoad updates the load's row in place or appends one if it is absent.
func (s *SheetsService) UpsertLoad(ctx context.Context, load *models.Load) error {
	if load == nil {
		return fmt.Errorf("load is nil")
	}

	rowIdx, err := s.FindLoadRow(ctx, load.ID)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.AppendLoad(ctx, load)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:N%d", loadsRange, rowIdx, rowIdx)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{loadRowValues(load)},
	}

	_, err = s.service.Spreadsheets.Values.Update(s.loadsSheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// UpdateLoadStatus rewrites the status column (B) and the updated-at column
// (N) for a load row.
func (s *SheetsService) UpdateLoadStatus(ctx context.Context, loadID int64, status string) error {
	rowIdx, err := s.FindLoadRow(ctx, loadID)
	if err != nil {
		return err
	}

	statusRange := fmt.Sprintf("%s!B%d:B%d", loadsRange, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.loadsSheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	updatedRange := fmt.Sprintf("%s!N%d:N%d", loadsRange, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.loadsSheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{now}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// ReplaceLoadsSheet rewrites the whole data area below the header row.
func (s *SheetsService) ReplaceLoadsSheet(ctx context.Context, loads []*models.Load) error {
	clearRange := loadsRange + "!A2:Z"
	_, err := s.service.Spreadsheets.Values.Clear(s.loadsSheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear loads sheet: %v", err)
	}

	var values [][]interface{}
	for _, load := range loads {
		values = append(values, loadRowValues(load))
	}

	valueRange := &sheets.ValueRange{Values: values}
	_, err = s.service.Spreadsheets.Values.Update(s.loadsSheetID, loadsRange+"!A2", valueRange).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update loads sheet: %v", err)
	}

	s.cacheMu.Lock()
	s.rowCache = make(map[int64]int)
	for i, l := range loads {
		s.rowCache[l.ID] = i + 2 // data starts at row 2
	}
	s.cacheMu.Unlock()

	return nil
}

// FindLoadRow locates the 1-based row index for a load id in column A.
func (s *SheetsService) FindLoadRow(ctx context.Context, loadID int64) (int, error) {
	if loadID == 0 {
		return 0, fmt.Errorf("load id is required")
	}

	if row, ok := s.getCachedRow(loadID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.loadsSheetID, loadsRange+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		switch v := row[0].(type) {
		case float64:
			if int64(v) == loadID {
				rowIdx := i + 1
				s.setCachedRow(loadID, rowIdx)
				return rowIdx, nil
			}
		case string:
			if v == fmt.Sprintf("%d", loadID) {
				rowIdx := i + 1
				s.setCachedRow(loadID, rowIdx)
				return rowIdx, nil
			}
		}
	}

	return 0, errRowNotFound
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache drops the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func loadRowValues(load *models.Load) []interface{} {
	var assignedTo interface{}
	if load.AssignedTo != nil {
		assignedTo = *load.AssignedTo
	} else {
		assignedTo = ""
	}

	return []interface{}{
		load.ID,
		load.Status,
		load.SourceCity,
		load.DestinationCity,
		load.Material,
		load.WeightMT,
		load.TruckType,
		load.LoadType,
		load.PostedBy,
		assignedTo,
		load.BookingFee,
		load.AcceptedQuoteAmount,
		load.CreatedAt.Format("2006-01-02 15:04:05"),
		load.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
