package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errDatasetRequired   = errors.New("bigquery dataset is required")
	errNoTables          = errors.New("at least one table spec is required")
	errNotInitialized    = errors.New("bigquery client not initialized")
	errUnknownTable      = errors.New("table not registered with client")
)

// TableSpec is a table the client streams into. Day partitioning on
// PartitionField and clustering only apply when the client creates the table.
type TableSpec struct {
	Name           string
	Schema         bigquery.Schema
	PartitionField string
	ClusterFields  []string
}

// Client streams analytics rows into one dataset and keeps the tables it
// writes to in line with their specs.
type Client struct {
	client     *bigquery.Client
	dataset    *bigquery.Dataset
	tables     map[string]TableSpec
	autoCreate bool
	logg       *logger.Logger
}

// NewClient connects and reconciles every spec against the dataset: missing
// tables are created when auto-create is on, and live tables must carry every
// spec column.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, specs []TableSpec, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables, err := indexSpecs(specs)
	if err != nil {
		return nil, err
	}

	bq, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{
		client:     bq,
		dataset:    bq.Dataset(datasetID),
		tables:     tables,
		autoCreate: cfg.AutoCreateTables,
		logg:       logg,
	}
	if err := c.reconcile(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"dataset": datasetID,
			"tables":  len(tables),
		}), "bigquery client initialized")
	}
	return c, nil
}

func indexSpecs(specs []TableSpec) (map[string]TableSpec, error) {
	if len(specs) == 0 {
		return nil, errNoTables
	}
	out := make(map[string]TableSpec, len(specs))
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			return nil, errors.New("table spec needs a name")
		}
		if len(spec.Schema) == 0 {
			return nil, fmt.Errorf("table %q has no schema", spec.Name)
		}
		if _, dup := out[spec.Name]; dup {
			return nil, fmt.Errorf("table %q registered twice", spec.Name)
		}
		out[spec.Name] = spec
	}
	return out, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	default:
		return nil
	}
}

func (c *Client) reconcile(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if err := c.checkDataset(ctx); err != nil {
		return err
	}
	for _, spec := range c.tables {
		table := c.dataset.Table(spec.Name)
		meta, err := table.Metadata(ctx)
		switch {
		case isNotFound(err) && c.autoCreate:
			if err := table.Create(ctx, tableMetadata(spec)); err != nil {
				return fmt.Errorf("creating table %q: %w", spec.Name, err)
			}
			if c.logg != nil {
				c.logg.Info(c.logg.WithField(ctx, "table", spec.Name), "bigquery table created")
			}
		case isNotFound(err):
			return fmt.Errorf("table %q does not exist", spec.Name)
		case err != nil:
			return fmt.Errorf("checking table %q: %w", spec.Name, err)
		default:
			if missing := missingColumns(meta.Schema, spec.Schema); len(missing) > 0 {
				return fmt.Errorf("table %q is missing columns %s", spec.Name, strings.Join(missing, ", "))
			}
		}
	}
	return nil
}

func (c *Client) checkDataset(ctx context.Context) error {
	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	return nil
}

func tableMetadata(spec TableSpec) *bigquery.TableMetadata {
	meta := &bigquery.TableMetadata{Schema: spec.Schema}
	if spec.PartitionField != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: spec.PartitionField,
		}
	}
	if len(spec.ClusterFields) > 0 {
		meta.Clustering = &bigquery.Clustering{Fields: spec.ClusterFields}
	}
	return meta
}

// missingColumns lists top-level columns of want that live lacks.
func missingColumns(live, want bigquery.Schema) []string {
	have := make(map[string]struct{}, len(live))
	for _, field := range live {
		have[strings.ToLower(field.Name)] = struct{}{}
	}
	var missing []string
	for _, field := range want {
		if _, ok := have[strings.ToLower(field.Name)]; !ok {
			missing = append(missing, field.Name)
		}
	}
	return missing
}

// Ping checks the dataset is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	return c.checkDataset(ctx)
}

// InsertRows streams rows into a registered table. Each row is saved against
// the table's schema under insertID so BigQuery drops retried duplicates.
func (c *Client) InsertRows(ctx context.Context, table string, rows []Row) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	spec, ok := c.tables[strings.TrimSpace(table)]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownTable, table)
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(spec.Name).Inserter().Put(ctx, savers(spec.Schema, rows))
}

// Row pairs a struct value with the id BigQuery deduplicates it on.
type Row struct {
	InsertID string
	Value    any
}

func savers(schema bigquery.Schema, rows []Row) []*bigquery.StructSaver {
	out := make([]*bigquery.StructSaver, len(rows))
	for i, row := range rows {
		out[i] = &bigquery.StructSaver{Schema: schema, InsertID: row.InsertID, Struct: row.Value}
	}
	return out
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
