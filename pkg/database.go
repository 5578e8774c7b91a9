package emtf

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

// ConnectToDatabase opens the conditions database. driver is "mysql" or
// "sqlite"; for sqlite dbname is the file name (":memory:" works).
func ConnectToDatabase(driver string, user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	switch driver {
	case "mysql":
		port := "3306"
		dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
		return sqlx.Connect("mysql", dbURI)
	case "sqlite":
		db, err := sqlx.Connect("sqlite", dbname)
		if err != nil {
			return nil, err
		}
		// a single connection keeps in-memory databases alive
		db.SetMaxOpenConns(1)
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// RunParams are the per-run conditions of the track finder.
type RunParams struct {
	MinRun          int    `db:"MinRun"`
	MaxRun          int    `db:"MaxRun"`
	PtAssignVersion int    `db:"PtAssignVersion"`
	BDTXMLDir       string `db:"BDTXMLDir"`
	PtLUTVersion    int    `db:"PtLUTVersion"`
}

// Apply copies the conditions into a configuration.
func (p RunParams) Apply(config *Configuration) {
	config.PtAssignVersion = p.PtAssignVersion
	config.BDTXMLDir = p.BDTXMLDir
	config.PtLUTVersion = p.PtLUTVersion
}

// ConditionsStore keeps pt forests and run parameters by run range.
type ConditionsStore struct {
	db *sqlx.DB
}

func NewConditionsStore(db *sqlx.DB) *ConditionsStore {
	return &ConditionsStore{db: db}
}

var conditionsSchema = []string{
	`CREATE TABLE IF NOT EXISTS Forests (
		Version INTEGER NOT NULL,
		Dir VARCHAR(64) NOT NULL,
		MinRun INTEGER NOT NULL,
		MaxRun INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ForestNodes (
		Version INTEGER NOT NULL,
		Dir VARCHAR(64) NOT NULL,
		Mode INTEGER NOT NULL,
		Tree INTEGER NOT NULL,
		Path VARCHAR(255) NOT NULL,
		Feature INTEGER NOT NULL,
		Cut DOUBLE NOT NULL,
		Value DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ForestRanges (
		Version INTEGER NOT NULL,
		Dir VARCHAR(64) NOT NULL,
		Feature INTEGER NOT NULL,
		MinValue DOUBLE NOT NULL,
		MaxValue DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS RunParams (
		MinRun INTEGER NOT NULL,
		MaxRun INTEGER NOT NULL,
		PtAssignVersion INTEGER NOT NULL,
		BDTXMLDir VARCHAR(64) NOT NULL,
		PtLUTVersion INTEGER NOT NULL
	)`,
}

func (s *ConditionsStore) CreateSchema() error {
	for _, statement := range conditionsSchema {
		if _, err := s.db.Exec(statement); err != nil {
			return fmt.Errorf("error creating conditions schema: %w", err)
		}
	}
	return nil
}

// StoreForest saves a forest valid for runs [minRun, maxRun].
func (s *ConditionsStore) StoreForest(forest *Forest, minRun, maxRun int) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO Forests (Version, Dir, MinRun, MaxRun) VALUES (?, ?, ?, ?)",
		forest.Version, forest.Dir, minRun, maxRun); err != nil {
		return fmt.Errorf("error storing forest: %w", err)
	}

	nodes, err := tx.Preparex("INSERT INTO ForestNodes (Version, Dir, Mode, Tree, Path, Feature, Cut, Value) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer nodes.Close()
	for _, line := range forest.Lines() {
		if _, err := nodes.Exec(forest.Version, forest.Dir, line.Mode, line.Tree, line.Path, line.Feature, line.Cut, line.Value); err != nil {
			return fmt.Errorf("error storing forest node: %w", err)
		}
	}

	for _, r := range forest.Ranges() {
		if _, err := tx.Exec("INSERT INTO ForestRanges (Version, Dir, Feature, MinValue, MaxValue) VALUES (?, ?, ?, ?, ?)",
			forest.Version, forest.Dir, r.Feature, r.Min, r.Max); err != nil {
			return fmt.Errorf("error storing forest range: %w", err)
		}
	}
	return tx.Commit()
}

// LoadForest reads the forest of the given version valid for run.
func (s *ConditionsStore) LoadForest(run int, version int) (*Forest, error) {
	var dir string
	err := s.db.Get(&dir, "SELECT Dir FROM Forests WHERE Version = ? AND MinRun <= ? AND MaxRun >= ? ORDER BY MinRun DESC LIMIT 1",
		version, run, run)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", run, &ErrUnknownForest{Version: version})
	}
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}

	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading forest %s version %d from database", dir, version), "database")
	}

	var lines []ForestLine
	if err := s.db.Select(&lines, "SELECT Mode, Tree, Path, Feature, Cut, Value FROM ForestNodes WHERE Version = ? AND Dir = ? ORDER BY Mode, Tree, Path",
		version, dir); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	var ranges []FeatureRange
	if err := s.db.Select(&ranges, "SELECT Feature, MinValue, MaxValue FROM ForestRanges WHERE Version = ? AND Dir = ? ORDER BY Feature",
		version, dir); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("%d forest nodes, %d feature ranges", len(lines), len(ranges)), "database")
	}
	return NewForest(version, dir, lines, ranges)
}

func (s *ConditionsStore) StoreParams(params RunParams) error {
	_, err := s.db.NamedExec(`INSERT INTO RunParams (MinRun, MaxRun, PtAssignVersion, BDTXMLDir, PtLUTVersion)
		VALUES (:MinRun, :MaxRun, :PtAssignVersion, :BDTXMLDir, :PtLUTVersion)`, params)
	if err != nil {
		return fmt.Errorf("error storing run parameters: %w", err)
	}
	return nil
}

// LoadParams returns the conditions of run. The second result is false if
// no range covers it.
func (s *ConditionsStore) LoadParams(run int) (RunParams, bool, error) {
	var params RunParams
	err := s.db.Get(&params, "SELECT MinRun, MaxRun, PtAssignVersion, BDTXMLDir, PtLUTVersion FROM RunParams WHERE MinRun <= ? AND MaxRun >= ? ORDER BY MinRun DESC LIMIT 1",
		run, run)
	if errors.Is(err, sql.ErrNoRows) {
		return params, false, nil
	}
	if err != nil {
		return params, false, fmt.Errorf("error querying database: %w", err)
	}
	return params, true, nil
}
