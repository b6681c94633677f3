// Bulk XP import: reads an identifier,xp CSV and writes each row
// through the ledger. Two formats are auto-detected per row: platform
// user IDs (applied directly) and usernames (resolved through the
// adapter, rate limited). Rows that cannot be applied are collected in
// a failures CSV.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"forum-xp-backend/internal/common/config"
	"forum-xp-backend/internal/common/logger"
	"forum-xp-backend/internal/features/progression/models"
	sqliterepo "forum-xp-backend/internal/features/progression/repository/sqlite"
	progression "forum-xp-backend/internal/features/progression/service"
	"forum-xp-backend/internal/platform/chat"
)

const lookupInterval = 1500 * time.Millisecond

type row struct {
	identifier string
	xp         int64
	isID       bool
}

type failure struct {
	identifier string
	xp         int64
	reason     string
}

func main() {
	csvPath := flag.String("csv", "import.csv", "input CSV (userid,xp or username,xp)")
	failPath := flag.String("failures", "import-failures.csv", "output CSV for rows that could not be applied")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger.Init("xp-import", cfg.Debug)

	thresholds, err := models.NewThresholdTable(cfg.Levels.Thresholds)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid threshold table")
	}

	store, err := sqliterepo.Open(cfg.Storage.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open record store")
	}
	defer store.Close()

	ledger := progression.NewLedger(store, thresholds)
	adapter := chat.NewMemoryAdapter()

	rows, err := parseCSV(*csvPath)
	if err != nil {
		logger.Fatal().Err(err).Str("csv", *csvPath).Msg("Failed to read import file")
	}
	logger.Info().Int("rows", len(rows)).Str("csv", *csvPath).Msg("Starting import")

	ctx := context.Background()
	var failures []failure
	imported := 0

	for _, r := range rows {
		userID := r.identifier
		if !r.isID {
			member, err := adapter.SearchMember(ctx, cfg.Bot.GuildID, r.identifier)
			if err != nil {
				failures = append(failures, failure{r.identifier, r.xp, "member lookup failed"})
				logger.Warn().Str("username", r.identifier).Msg("Could not resolve username")
				time.Sleep(lookupInterval)
				continue
			}
			userID = member.UserID
			time.Sleep(lookupInterval)
		}

		result, err := ledger.SetXP(ctx, userID, r.xp)
		if err != nil {
			failures = append(failures, failure{r.identifier, r.xp, err.Error()})
			logger.Error().Err(err).Str("user_id", userID).Msg("Failed to write XP")
			continue
		}
		imported++
		logger.Debug().Str("user_id", userID).Int64("xp", result.NewXP).Int("level", result.NewLevel).Msg("Imported user")
	}

	if len(failures) > 0 {
		if err := writeFailures(*failPath, failures); err != nil {
			logger.Error().Err(err).Str("failures", *failPath).Msg("Failed to write failures file")
		}
	}

	logger.Info().Int("imported", imported).Int("failed", len(failures)).Msg("Import finished")
}

// isPlatformID matches 17-19 digit snowflake identifiers.
func isPlatformID(s string) bool {
	if len(s) < 17 || len(s) > 19 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parseCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("empty csv")
	}

	header := strings.ToLower(strings.Join(records[0], ","))
	idFormat := strings.Contains(header, "userid") || strings.Contains(header, "user_id")

	var rows []row
	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		identifier := strings.TrimSpace(record[0])
		xp, err := strconv.ParseInt(strings.TrimSpace(record[1]), 10, 64)
		if identifier == "" || err != nil {
			continue
		}
		rows = append(rows, row{
			identifier: identifier,
			xp:         xp,
			isID:       idFormat || isPlatformID(identifier),
		})
	}
	return rows, nil
}

func writeFailures(path string, failures []failure) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"identifier", "xp", "reason"}); err != nil {
		return err
	}
	for _, fail := range failures {
		if err := writer.Write([]string{fail.identifier, strconv.FormatInt(fail.xp, 10), fail.reason}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
