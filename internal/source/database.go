package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/config"
	"github.com/Veraticus/cropcast/internal/model"
)

// upstreamTarget is the column the upstream application writes its own
// predictions to. Training on it feeds the model its own output.
const upstreamTarget = "predictedYield"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// historyRow is one row of the upstream predictions table.
type historyRow struct {
	CreatedAt   sql.NullTime    `db:"created_at"`
	CropType    sql.NullString  `db:"crop_type"`
	Region      sql.NullString  `db:"region"`
	SoilType    sql.NullString  `db:"soil_type"`
	Temperature sql.NullFloat64 `db:"temperature"`
	Rainfall    sql.NullFloat64 `db:"rainfall"`
	Humidity    sql.NullFloat64 `db:"humidity"`
	Area        sql.NullFloat64 `db:"area"`
	Yield       sql.NullFloat64 `db:"yield"`
}

// DatabaseColumns are the raw columns a database dataset supplies.
var DatabaseColumns = []string{
	model.ColCropType, model.ColRegion, model.ColSoilType,
	model.ColTemperature, model.ColRainfall, model.ColHumidity,
	model.ColYield,
}

// DatabaseSource reads historical predictions from the upstream relational store.
type DatabaseSource struct {
	cfg config.DatabaseConfig
}

// NewDatabaseSource returns a source for cfg.
func NewDatabaseSource(cfg config.DatabaseConfig) *DatabaseSource {
	return &DatabaseSource{cfg: cfg}
}

// Name implements DataSource.
func (d *DatabaseSource) Name() string {
	return string(model.SourceDatabase)
}

// TryAcquire implements DataSource. The whole acquisition, including retries,
// is bounded by the configured timeout. The dataset is adequate only when it
// has strictly more than MinRows rows.
func (d *DatabaseSource) TryAcquire(ctx context.Context) (model.Dataset, error) {
	if !d.cfg.Enabled {
		return model.Dataset{}, fmt.Errorf("%w: database source disabled", common.ErrSourceUnavailable)
	}

	query, err := d.query()
	if err != nil {
		return model.Dataset{}, fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err)
	}
	if d.cfg.TargetColumn == upstreamTarget {
		slog.Warn("Training target is the upstream predicted yield column; the model will learn from its own predictions",
			"column", d.cfg.TargetColumn)
	}

	driver, dsn, err := d.connection()
	if err != nil {
		return model.Dataset{}, fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	var rows []historyRow
	err = common.WithRetry(ctx, func() error {
		var fetchErr error
		rows, fetchErr = fetch(ctx, driver, dsn, query)
		return fetchErr
	}, common.RetryOptions{
		MaxAttempts:  d.cfg.Retries + 1,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     d.cfg.Timeout,
	})
	if err != nil {
		return model.Dataset{}, fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err)
	}

	if len(rows) <= d.cfg.MinRows {
		return model.Dataset{}, fmt.Errorf("%w: database returned %d rows, need more than %d",
			common.ErrInsufficientData, len(rows), d.cfg.MinRows)
	}

	records := make([]model.YieldRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].record()
	}

	return model.Dataset{
		Provenance: model.Provenance{
			Kind:   model.SourceDatabase,
			Detail: fmt.Sprintf("%s://%s/%s", driver, d.cfg.Host, d.cfg.Name),
		},
		Columns: DatabaseColumns,
		Records: records,
	}, nil
}

func fetch(ctx context.Context, driver, dsn, query string) ([]historyRow, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to connect: %w", err), Retryable: isTransient(err)}
	}
	defer func() { _ = db.Close() }()

	var rows []historyRow
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, &common.RetryableError{Err: fmt.Errorf("failed to query predictions: %w", err), Retryable: isTransient(err)}
	}
	return rows, nil
}

// isTransient reports whether a connect or query error is likely to succeed
// on retry. Expired contexts, bad credentials and schema errors such as a
// missing table are not.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1205 lock wait timeout, 1213 deadlock
		return myErr.Number == 1205 || myErr.Number == 1213
	}
	return errors.Is(err, mysql.ErrInvalidConn)
}

func (d *DatabaseSource) query() (string, error) {
	if !identifierPattern.MatchString(d.cfg.TargetColumn) {
		return "", fmt.Errorf("invalid target column %q", d.cfg.TargetColumn)
	}
	return fmt.Sprintf(`SELECT cropType AS crop_type, region, soilType AS soil_type,
		temperature, rainfall, humidity, area, %[1]s AS yield, createdAt AS created_at
		FROM predictions
		WHERE %[1]s IS NOT NULL`, d.cfg.TargetColumn), nil
}

// connection resolves the driver name and DSN. An explicit DSN wins over the
// individual host, port and credential settings.
func (d *DatabaseSource) connection() (string, string, error) {
	driver := d.cfg.Driver
	if driver == "postgres" {
		driver = "pgx"
	}
	if d.cfg.DSN != "" {
		return driver, d.cfg.DSN, nil
	}

	switch driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = d.cfg.User
		mc.Passwd = d.cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
		mc.DBName = d.cfg.Name
		mc.Timeout = d.cfg.Timeout
		mc.ReadTimeout = d.cfg.Timeout
		mc.ParseTime = true
		return driver, mc.FormatDSN(), nil
	case "pgx":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.cfg.User, d.cfg.Password),
			Host:   net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port)),
			Path:   "/" + d.cfg.Name,
		}
		q := url.Values{}
		q.Set("connect_timeout", strconv.Itoa(int(math.Ceil(d.cfg.Timeout.Seconds()))))
		u.RawQuery = q.Encode()
		return driver, u.String(), nil
	case "sqlite3":
		if d.cfg.Name == "" {
			return "", "", errors.New("sqlite3 requires database.name to be a file path")
		}
		return driver, "file:" + config.ExpandPath(d.cfg.Name) + "?mode=ro", nil
	}
	return "", "", fmt.Errorf("unsupported driver %q", d.cfg.Driver)
}

func (r *historyRow) record() model.YieldRecord {
	rec := model.NewEmptyRecord()
	rec.CropType = r.CropType.String
	rec.Region = r.Region.String
	rec.SoilType = r.SoilType.String
	if r.Temperature.Valid {
		rec.Temperature = r.Temperature.Float64
	}
	if r.Rainfall.Valid {
		rec.Rainfall = r.Rainfall.Float64
	}
	if r.Humidity.Valid {
		rec.Humidity = r.Humidity.Float64
	}
	if r.Yield.Valid {
		rec.Yield = r.Yield.Float64
	}
	return rec
}
