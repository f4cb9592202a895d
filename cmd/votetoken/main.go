// Command votetoken mints bearer tokens for the voting API using JWT_SECRET
// from the environment (or .env). It is meant for local testing and for
// issuing organizer tokens.
//
//	votetoken -user alice
//	votetoken -user bob -organizer -ttl 720h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-cfp-voting/internal/config"
	"github.com/tbourn/go-cfp-voting/internal/http/middleware"
	"github.com/tbourn/go-cfp-voting/internal/sysutil"
)

func main() {
	user := flag.String("user", "", "user id placed in the sub claim")
	organizer := flag.Bool("organizer", false, "grant the organizer role")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime; 0 never expires")
	flag.Parse()

	sysutil.SetupLogger(os.Stderr, "info", true, "votetoken")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not set; the server trusts X-User-ID instead")
	}
	if *user == "" {
		flag.Usage()
		os.Exit(2)
	}

	tok, err := middleware.SignToken([]byte(cfg.Auth.JWTSecret), *user, *organizer, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("sign token")
	}
	fmt.Println(tok)
}
