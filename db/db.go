package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know about.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DirectoryDB is the SQL-backed directory.Store. Each mutating call runs as a
// single transaction so a membership change commits on both sides or not at all.
type DirectoryDB struct {
	DB     *sqlx.DB
	Driver string
	Log    *zerolog.Logger
}

var _ directory.Store = (*DirectoryDB)(nil)

// NewDirectoryDB opens and pings the database described by driver and source.
func NewDirectoryDB(driver, source string, log *zerolog.Logger) (*DirectoryDB, error) {
	if source == "" {
		log.Error().Msg("database source is not set")
		return nil, fmt.Errorf("database source is not set")
	}

	db, err := sqlx.Open(driver, source)
	if err != nil {
		log.Error().Err(err).Str("driver", driver).Msg("Failed to open database connection")
		return nil, err
	}

	// SQLite allows one writer at a time; serialising on a single connection
	// avoids SQLITE_BUSY under concurrent requests.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		db.Close()
		return nil, err
	}

	return &DirectoryDB{
		DB:     db,
		Driver: driver,
		Log:    log,
	}, nil
}

func (d *DirectoryDB) Close() error {
	if err := d.DB.Close(); err != nil {
		return err
	}
	d.Log.Info().Msg("database connection closed")
	return nil
}

// Migrate brings the schema up to date with the embedded goose migrations.
func (d *DirectoryDB) Migrate() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{log: d.Log})

	dialect := "postgres"
	if d.Driver == DriverSQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(d.DB.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	d.Log.Info().Str("dialect", dialect).Msg("Migrations applied successfully")
	return nil
}

// gooseLogger routes goose's migration output into the zerolog stream.
type gooseLogger struct {
	log *zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info().Str("component", "goose").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Fatal().Str("component", "goose").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// withTx runs fn in a transaction, rolling back if fn or the commit fails.
func (d *DirectoryDB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := d.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	defer func() {
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) {
				d.Log.Error().Err(err).Str("pq_code", pqErr.Code.Name()).Msg("database error, rolling back")
			}
			if rbErr := tx.Rollback(); rbErr != nil {
				d.Log.Error().Err(rbErr).Msg("error rolling back transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (d *DirectoryDB) exec(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) error {
	if _, err := tx.ExecContext(ctx, d.DB.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

func (d *DirectoryDB) exists(ctx context.Context, q sqlx.QueryerContext, query, id string) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, d.DB.Rebind(query), id); err != nil {
		return false, fmt.Errorf("error checking existence: %w", err)
	}
	return n > 0, nil
}

func (d *DirectoryDB) userExists(ctx context.Context, q sqlx.QueryerContext, userID string) (bool, error) {
	return d.exists(ctx, q, `SELECT COUNT(*) FROM directory_users WHERE userid = ?`, userID)
}

func (d *DirectoryDB) groupExists(ctx context.Context, q sqlx.QueryerContext, groupID string) (bool, error) {
	return d.exists(ctx, q, `SELECT COUNT(*) FROM directory_groups WHERE groupid = ?`, groupID)
}

// checkGroups returns UnknownGroup for the first group in groupIDs that does not exist.
func (d *DirectoryDB) checkGroups(ctx context.Context, tx *sqlx.Tx, groupIDs []string) error {
	for _, groupID := range groupIDs {
		ok, err := d.groupExists(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !ok {
			return directory.UnknownGroup(groupID)
		}
	}
	return nil
}

// checkUsers returns UnknownUser for the first user in userIDs that does not exist.
func (d *DirectoryDB) checkUsers(ctx context.Context, tx *sqlx.Tx, userIDs []string) error {
	for _, userID := range userIDs {
		ok, err := d.userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return directory.UnknownUser(userID)
		}
	}
	return nil
}

func (d *DirectoryDB) addEdge(ctx context.Context, tx *sqlx.Tx, userID, groupID string) error {
	return d.exec(ctx, tx, `INSERT INTO directory_memberships (userid, groupid) VALUES (?, ?)`, userID, groupID)
}

// removeEdge deletes one membership; an absent edge is not an error.
func (d *DirectoryDB) removeEdge(ctx context.Context, tx *sqlx.Tx, userID, groupID string) error {
	return d.exec(ctx, tx, `DELETE FROM directory_memberships WHERE userid = ? AND groupid = ?`, userID, groupID)
}

func (d *DirectoryDB) UserExists(ctx context.Context, userID string) bool {
	ok, err := d.userExists(ctx, d.DB, userID)
	if err != nil {
		d.Log.Error().Err(err).Str("userid", userID).Msg("error checking user existence")
		return false
	}
	return ok
}

func (d *DirectoryDB) GroupExists(ctx context.Context, groupID string) bool {
	ok, err := d.groupExists(ctx, d.DB, groupID)
	if err != nil {
		d.Log.Error().Err(err).Str("groupid", groupID).Msg("error checking group existence")
		return false
	}
	return ok
}

// isUniqueViolation reports a primary key clash from a concurrent writer.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return false
}
