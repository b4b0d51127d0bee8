// Command admin creates the first administrator account, or promotes an
// existing user, against the configured database.
package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/listings/internal/adminctl"
	"github.com/dmitrijs2005/listings/internal/server"
	"github.com/dmitrijs2005/listings/internal/server/auth"
	"github.com/dmitrijs2005/listings/internal/server/config"
	"github.com/dmitrijs2005/listings/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/listings/internal/server/services"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := server.NewLogger(cfg)

	db, err := server.OpenDB(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	tokens, err := auth.NewTokenManager(cfg.SecretKey, cfg.TokenAlgorithm)
	if err != nil {
		log.Fatalf("%v", err)
	}

	us := services.NewUserService(db, repomanager.NewPostgresRepositoryManager(), cfg,
		auth.NewPasswordHasher(cfg.BcryptCost), tokens, logger.With("module", "admin"))

	p := adminctl.Prompter{In: bufio.NewReader(os.Stdin), Out: os.Stdout, Fd: int(os.Stdin.Fd())}
	if _, err := p.Run(ctx, us); err != nil {
		log.Fatalf("%v", err)
	}

}
