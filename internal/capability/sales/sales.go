// Package sales is a capability server exposing a README document and monthly
// sales figures read from CSV files as resources.
package sales

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/registry"
	"github.com/wagiedev/mcp-agent-go/internal/server"
)

// ServerName is announced during the handshake.
const ServerName = "ResourceServer"

const (
	// SalesTemplate is the URI pattern of the monthly sales resource.
	SalesTemplate = "resource://sales/{year}/{month}"

	readmeName = "README"
	salesName  = "get_sales"
)

// Store reads sales files from a directory.
type Store struct {
	log        *slog.Logger
	dataDir    string
	readmePath string
}

// NewStore creates a store over dataDir with the README at readmePath.
func NewStore(log *slog.Logger, dataDir, readmePath string) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Store{
		log:        log.With("component", "sales"),
		dataDir:    dataDir,
		readmePath: readmePath,
	}
}

// DataDir returns the directory holding the CSV files.
func (s *Store) DataDir() string {
	return s.dataDir
}

// ReadmeURI is the file:// URI the README resource is published under.
func (s *Store) ReadmeURI() string {
	path := s.readmePath
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}

	return u.String()
}

// Readme returns the README contents.
func (s *Store) Readme() (string, error) {
	data, err := os.ReadFile(s.readmePath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", &errors.NotFoundError{Kind: "resource", Name: s.ReadmeURI()}
		}

		return "", fmt.Errorf("read readme: %w", err)
	}

	return string(data), nil
}

// Path returns the CSV file holding the figures for month and year.
func (s *Store) Path(year int, month string) string {
	return filepath.Join(s.dataDir, strings.ToLower(month)+"_"+strconv.Itoa(year)+".csv")
}

// Sales returns the rows of the month's CSV file keyed by column header.
// Numeric cells are returned as numbers.
func (s *Store) Sales(year int, month string) ([]map[string]any, error) {
	month = strings.ToLower(month)
	path := s.Path(year, month)

	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, &salesNotFoundError{
				NotFoundError: errors.NotFoundError{Kind: "resource", Name: fmt.Sprintf("resource://sales/%d/%s", year, month)},
				message: fmt.Sprintf("Sales data for %s %d not found at %s. Month must be written, month must be numeric",
					month, year, filepath.ToSlash(path)),
			}
		}

		return nil, fmt.Errorf("open sales data: %w", err)
	}
	defer f.Close()

	s.log.Debug("Reading sales data", "path", path)

	return readRecords(f)
}

// salesNotFoundError keeps the NotFoundError type while telling the caller
// where the data was expected.
type salesNotFoundError struct {
	errors.NotFoundError
	message string
}

func (e *salesNotFoundError) Error() string { return e.message }

func (e *salesNotFoundError) Unwrap() error { return &e.NotFoundError }

func readRecords(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return []map[string]any{}, nil
		}

		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []map[string]any

	for {
		record, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		row := make(map[string]any, len(header))
		for i, col := range header {
			row[col] = cellValue(record[i])
		}

		rows = append(rows, row)
	}

	if rows == nil {
		rows = []map[string]any{}
	}

	return rows, nil
}

func cellValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}

	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}

	return v
}

// Register declares the README resource and the get_sales template on reg.
func Register(reg *registry.Registry, store *Store) error {
	readme := registry.Descriptor{
		Kind:        registry.KindResource,
		Name:        readmeName,
		Description: "ReadMe File for MCP Server",
		URI:         store.ReadmeURI(),
		MIMEType:    "text/markdown",
		Handler: func(context.Context, map[string]any) (any, error) {
			return store.Readme()
		},
	}

	sales := registry.Descriptor{
		Kind:        registry.KindResourceTemplate,
		Name:        salesName,
		Description: "Provides Sales Stats per month and per year",
		URITemplate: SalesTemplate,
		MIMEType:    "application/json",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			yearArg, _ := args["year"].(string)
			month, _ := args["month"].(string)

			year, err := strconv.Atoi(yearArg)
			if err != nil {
				return nil, &errors.ValidationError{
					Kind: registry.KindResourceTemplate.String(), Name: salesName,
					Param: "year", Reason: "must be numeric", Err: err,
				}
			}

			return store.Sales(year, month)
		},
	}

	for _, d := range []registry.Descriptor{readme, sales} {
		if err := reg.Register(d); err != nil {
			return err
		}
	}

	return nil
}

// NewServer builds the sales server.
func NewServer(log *slog.Logger, store *Store) (*server.Server, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	reg := registry.New(log)

	if err := Register(reg, store); err != nil {
		return nil, err
	}

	return server.New(ServerName, "1.0.0", reg, server.WithLogger(log)), nil
}
