package digitizer

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// DBSource reads the drift constants and cell time shifts valid for a run
// from the conditions database.
type DBSource struct {
	db        *sqlx.DB
	geometry  Geometry
	clampDoca bool
}

func NewDBSource(db *sqlx.DB, geometry Geometry, clampDoca bool) *DBSource {
	return &DBSource{db: db, geometry: geometry, clampDoca: clampDoca}
}

const driftParamsQuery = `SELECT a_t, b_t, c_t, d_t,
	a_phi, b_phi, c_phi, d_phi,
	a_z, b_z,
	t_2GEM2, t_2GEM3, t_2PAD,
	sigma_t_2GEM2, sigma_t_2GEM3, sigma_t_2PAD,
	phi_2GEM2, phi_2GEM3, phi_2PAD,
	sigma_phi_2GEM2, sigma_phi_2GEM3, sigma_phi_2PAD,
	TPC_TZERO
	FROM AhdcDriftParams WHERE MinRun <= ? and MaxRun >= ? ORDER BY MinRun DESC LIMIT 1`

const timeShiftQuery = `SELECT layer, component, shift FROM AhdcTimeShift
	WHERE MinRun <= ? and MaxRun >= ? ORDER BY layer, component`

func (s *DBSource) Load(runNumber int) (*Calibration, error) {
	params, err := getDriftParamsFromDB(s.db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting drift parameters from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, errMessage
	}
	shifts, err := getTimeShiftsFromDB(s.db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting time shifts from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, errMessage
	}
	return NewCalibration(runNumber, s.geometry, params, shifts, s.clampDoca), nil
}

func getDriftParamsFromDB(db *sqlx.DB, runNumber int) (DriftParams, error) {
	query := db.Rebind(driftParamsQuery)
	if verbosity > 0 {
		logger.Info("Reading drift parameters from database", "database")
	}
	if verbosity > 2 {
		message := fmt.Sprintf("Query: %s (run %d)", query, runNumber)
		logger.Info(message, "database")
	}

	var params DriftParams
	if err := db.Get(&params, query, runNumber, runNumber); err != nil {
		return DriftParams{}, fmt.Errorf("error querying database: %w", err)
	}
	return params, nil
}

func getTimeShiftsFromDB(db *sqlx.DB, runNumber int) ([]TimeShift, error) {
	query := db.Rebind(timeShiftQuery)
	if verbosity > 0 {
		logger.Info("Reading time shifts from database", "database")
	}
	if verbosity > 2 {
		message := fmt.Sprintf("Query: %s (run %d)", query, runNumber)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(query, runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	shifts := make([]TimeShift, 0)
	for rows.Next() {
		result := TimeShift{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		shifts = append(shifts, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	return shifts, nil
}
