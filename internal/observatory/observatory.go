// Package observatory reads study views and country geometries from the
// Observatory PostgreSQL database.
package observatory

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/malariagen/obsetl/internal/config"
	"github.com/malariagen/obsetl/internal/tables"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoStudies is returned when the studies view is empty.
var ErrNoStudies = errors.New("observatory: studies view returned zero studies")

// Source exports data from one Observatory schema.
type Source struct {
	pool *pgxpool.Pool
	cfg  config.Observatory
}

// Connect opens a pool to the Observatory database and checks it is reachable.
func Connect(ctx context.Context, cfg config.Observatory) (*Source, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("observatory: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("observatory: ping %s: %w", cfg.Host, err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Str("schema", cfg.Schema).
		Msg("Connected to Observatory")

	return &Source{pool: pool, cfg: cfg}, nil
}

// Close releases the pool.
func (s *Source) Close() {
	s.pool.Close()
}

// relation quotes schema.name for use in SQL text.
func (s *Source) relation(name string) string {
	return pgx.Identifier{s.cfg.Schema, name}.Sanitize()
}

// StudiesQuery returns the SQL listing the authoritative study ids.
func StudiesQuery(cfg config.Observatory) string {
	return fmt.Sprintf("SELECT %s FROM %s",
		pgx.Identifier{cfg.StudyField}.Sanitize(),
		pgx.Identifier{cfg.Schema, cfg.StudiesView}.Sanitize(),
	)
}

// StudyIDs returns the authoritative list of studies. An empty list is an error.
func (s *Source) StudyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, StudiesQuery(s.cfg))
	if err != nil {
		return nil, fmt.Errorf("observatory: query studies: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("observatory: scan studies: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoStudies
	}

	return ids, nil
}

// CopyQuery returns the COPY statement that streams view as an unquoted
// tab-delimited table with a header row.
func CopyQuery(schema, view string) string {
	return fmt.Sprintf(
		`COPY (SELECT * FROM %s) TO STDOUT (FORMAT csv, HEADER TRUE, DELIMITER E'\t', QUOTE E'\b', ESCAPE E'\b', NULL '')`,
		pgx.Identifier{schema, view}.Sanitize(),
	)
}

// ExportView streams view into w and returns the number of rows copied.
func (s *Source) ExportView(ctx context.Context, view string, w io.Writer) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("observatory: acquire: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Conn().PgConn().CopyTo(ctx, w, CopyQuery(s.cfg.Schema, view))
	if err != nil {
		return 0, fmt.Errorf("observatory: copy %q: %w", view, err)
	}

	return tag.RowsAffected(), nil
}

// ExportViewFile writes view into path in the escaped table encoding every
// later step reads.
func (s *Source) ExportViewFile(ctx context.Context, view, path string) error {
	n, err := writeExport(ctx, path, func(ctx context.Context, w io.Writer) (int64, error) {
		return s.ExportView(ctx, view, w)
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("view", view).
		Str("path", path).
		Int64("rows", n).
		Msg("View exported")

	return nil
}

// writeExport streams the raw output of export through the table reader and
// rewrites it at path.
func writeExport(ctx context.Context, path string, export func(context.Context, io.Writer) (int64, error)) (int64, error) {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	var n int64
	g.Go(func() error {
		var err error
		n, err = export(gctx, pw)
		_ = pw.CloseWithError(err)
		return err
	})

	var tbl *tables.Table
	g.Go(func() error {
		var err error
		tbl, err = tables.ReadRaw(pr)
		_ = pr.CloseWithError(err)
		return err
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}

	return n, tbl.WriteFile(path)
}

// CountryGeometries returns the GeoJSON text of every country keyed by
// country id. Countries with a NULL geometry map to an empty string.
func (s *Source) CountryGeometries(ctx context.Context) (map[string]string, error) {
	query := fmt.Sprintf("SELECT %s, %s::text FROM %s",
		pgx.Identifier{s.cfg.CountryField}.Sanitize(),
		pgx.Identifier{s.cfg.GeoJSONField}.Sanitize(),
		s.relation(s.cfg.CountriesTable),
	)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("observatory: query countries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var (
			id string
			gj *string
		)
		if err := rows.Scan(&id, &gj); err != nil {
			return nil, fmt.Errorf("observatory: scan country: %w", err)
		}
		if gj != nil {
			out[id] = *gj
		} else {
			out[id] = ""
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("observatory: read countries: %w", err)
	}

	log.Debug().Int("countries", len(out)).Msg("Country geometries loaded")

	return out, nil
}
