package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/moogle/go/internal/dbconfig"
)

// resultRow is one archived room with its winner, if it had players.
type resultRow struct {
	Code       string
	Reason     string
	Questions  int32
	Players    int64
	Winner     *string
	TopBalance *int32
	FinishedAt time.Time
}

const recentResults = `
    SELECT r.code, r.reason, r.total_questions,
           (SELECT COUNT(*) FROM room_result_players p WHERE p.result_id = r.id) AS players,
           w.name, w.balance, r.finished_at
      FROM room_results r
      LEFT JOIN room_result_players w ON w.result_id = r.id AND w.rank = 1
     WHERE ($1 = '' OR r.code = $1)
     ORDER BY r.finished_at DESC
     LIMIT $2
`

func main() {
	limit := flag.Int("n", 20, "number of results to show")
	code := flag.String("code", "", "only show rooms with this join code")
	flag.Parse()

	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, recentResults, *code, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query results: %v\n", err)
		os.Exit(1)
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByPos[resultRow])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read results: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tCODE\tQUESTIONS\tPLAYERS\tWINNER\tBALANCE\tREASON")
	for _, r := range results {
		winner, balance := "-", "-"
		if r.Winner != nil && r.TopBalance != nil {
			winner, balance = *r.Winner, fmt.Sprint(*r.TopBalance)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.FinishedAt.Local().Format(time.DateTime), r.Code, r.Questions, r.Players, winner, balance, r.Reason)
	}
	w.Flush()

	fmt.Printf("\n%d result(s)\n", len(results))
}
