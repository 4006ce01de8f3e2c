// cmd/tools/ledger-viewer/main.go
//
// Prints the newest application records with applicant names resolved.
// Operator convenience for checking what the engine actually submitted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"applybot/internal/common/config"
	"applybot/internal/common/database"
	"applybot/internal/common/logger"
	"applybot/internal/store/applicants"
	"applybot/internal/store/ledger"
)

func main() {
	configPath := flag.String("config", "", "path to the config file (defaults to configs/config.yaml)")
	limit := flag.Int("limit", 50, "maximum number of records to print")
	applicantID := flag.String("applicant", "", "only show records for this applicant id")
	flag.Parse()

	if err := run(*configPath, *limit, *applicantID); err != nil {
		fmt.Fprintf(os.Stderr, "ledger-viewer: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, limit int, applicantID string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	log := logger.NewZapAdapter(logger.New("error", cfg.Logging.Format))

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}

	records, err := ledger.New(pg.DB, log).Recent(ctx, limit)
	if err != nil {
		return err
	}

	names := map[string]string{}
	if profiles, err := applicants.New(pg.DB, log).All(ctx); err == nil {
		for _, p := range profiles {
			names[p.ID] = p.FullName()
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APPLIED AT\tAPPLICANT\tJOB TITLE\tCOMPANY\tURL")
	shown := 0
	for _, rec := range records {
		if applicantID != "" && rec.ApplicantID != applicantID {
			continue
		}
		name := names[rec.ApplicantID]
		if name == "" {
			name = rec.ApplicantID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.AppliedAt.Local().Format("2006-01-02 15:04"),
			name, rec.JobTitle, rec.CompanyName, rec.JobURL,
		)
		shown++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d record(s)\n", shown)
	return nil
}
