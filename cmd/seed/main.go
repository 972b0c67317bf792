package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/podium/internal/seed"
	"github.com/okian/podium/pkg/logger"
)

// Default configuration constants.
const (
	defaultTeams           = 24
	defaultStudentsPerTeam = 5
	defaultTimeout         = 2 * time.Minute
)

func main() {
	var (
		dbPath      = flag.String("db", "podium.db", "SQLite file to seed")
		teams       = flag.Int("teams", defaultTeams, "Number of teams to generate")
		students    = flag.Int("students", defaultStudentsPerTeam, "Students per team")
		randSeed    = flag.Int64("seed", 1, "Random seed for reproducible data")
		competition = flag.String("competition", "demo", "Competition ref to create")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cfg := &seed.Config{
		DBPath:          *dbPath,
		Teams:           *teams,
		StudentsPerTeam: *students,
		Rand:            *randSeed,
		CompetitionRef:  *competition,
	}
	if err := seed.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
