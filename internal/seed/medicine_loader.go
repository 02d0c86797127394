package seed

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoadMedicines ingests a catalog CSV (name, category, description,
// price, quantity) into the medicines table, ignoring duplicates. The
// seed is best-effort: a missing file or a bad row is logged, not fatal.
func LoadMedicines(db *sqlx.DB, csvPath string, logger *zap.Logger) {
	file, err := os.Open(csvPath)
	if err != nil {
		logger.Info("no medicine catalog to seed", zap.String("path", csvPath), zap.Error(err))
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		logger.Warn("unable to read medicine header", zap.Error(err))
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		logger.Warn("unable to start medicine seed transaction", zap.Error(err))
		return
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO medicines (name, category, description, price, quantity) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		logger.Warn("unable to prepare medicine insert", zap.Error(err))
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("unable to read medicine row", zap.Error(err))
			continue
		}
		if len(record) < 5 {
			continue
		}
		name := strings.TrimSpace(record[0])
		category := strings.TrimSpace(record[1])
		description := strings.TrimSpace(record[2])
		if name == "" {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record[3]))
		if err != nil || price.IsNegative() {
			logger.Warn("skipping medicine with bad price", zap.String("name", name))
			continue
		}
		quantity, err := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)
		if err != nil || quantity < 0 {
			quantity = 0
		}

		if _, err := stmt.Exec(name, category, description, price, quantity); err != nil {
			logger.Warn("unable to insert medicine", zap.String("name", name), zap.Error(err))
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Warn("unable to commit medicine seed", zap.Error(err))
		return
	}
	logger.Info("seeded medicine catalog", zap.Int("rows", rows))
}
